package judge0

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const submitPath = "/submissions?base64_encoded=true&wait=true"

// Config carries the static credential pair and endpoint for the execution
// backend. Injected once at construction; no per-call branching.
type Config struct {
	BaseURL string
	APIKey  string
	APIHost string
}

// Client is a thin wrapper around the remote execution backend. It submits
// one execution, decodes the response, and reports every failure as a
// *TransportError. It holds no state between calls and never retries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		// No client-level timeout: the per-call context carries the deadline.
		httpClient: &http.Client{},
		log:        log,
	}
}

// Execute runs one submission on the backend and blocks until it finishes or
// ctx expires. The returned error, when non-nil, is always a *TransportError.
func (c *Client) Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	if strings.TrimSpace(req.SourceText) == "" {
		return nil, &TransportError{Kind: KindInvalidRequest, Message: "source text is empty"}
	}
	if req.LanguageID <= 0 {
		return nil, &TransportError{Kind: KindInvalidRequest, Message: fmt.Sprintf("unsupported language id %d", req.LanguageID)}
	}

	payload := submissionRequest{
		SourceCode: base64.StdEncoding.EncodeToString([]byte(req.SourceText)),
		LanguageID: req.LanguageID,
		Stdin:      base64.StdEncoding.EncodeToString([]byte(req.Stdin)),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Kind: KindBackend, Message: "failed to marshal request: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Kind: KindNetwork, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" && c.cfg.APIHost != "" {
		httpReq.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
		httpReq.Header.Set("X-RapidAPI-Host", c.cfg.APIHost)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("execution backend returned non-2xx",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, &TransportError{
			Kind:    KindBadStatus,
			Message: fmt.Sprintf("backend responded %d: %s", resp.StatusCode, string(snippet)),
		}
	}

	var wire submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &TransportError{Kind: KindBackend, Message: "failed to decode backend response: " + err.Error()}
	}

	result := &ExecutionResult{
		StatusCode:        statusFromID(wire.Status.ID),
		StatusDescription: wire.Status.Description,
	}

	// Output fields come back base64-encoded. A field that fails to decode
	// degrades the result to InternalError rather than failing the call.
	decodeFailed := false
	result.Stdout = decodeField(wire.Stdout, &decodeFailed)
	result.Stderr = decodeField(wire.Stderr, &decodeFailed)
	result.CompileOutput = decodeField(wire.CompileOutput, &decodeFailed)
	if decodeFailed {
		result.StatusCode = StatusInternalError
		result.StatusDescription = "backend returned undecodable output"
	}

	return result, nil
}

func decodeField(field *string, failed *bool) string {
	if field == nil {
		return ""
	}
	// The backend wraps long payloads with newlines.
	cleaned := strings.ReplaceAll(strings.TrimSpace(*field), "\n", "")
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		*failed = true
		return ""
	}
	return string(raw)
}

func classifyNetworkError(err error) *TransportError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindTimeout, Message: "execution call exceeded its deadline"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: KindTimeout, Message: netErr.Error()}
	}
	if errors.Is(err, context.Canceled) {
		return &TransportError{Kind: KindNetwork, Message: "execution call canceled"}
	}
	return &TransportError{Kind: KindNetwork, Message: err.Error()}
}
