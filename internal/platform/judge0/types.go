package judge0

import "fmt"

// ExecutionRequest is one (source, language, stdin) triple handed to the
// remote execution backend. Never persisted.
type ExecutionRequest struct {
	SourceText string
	LanguageID int
	Stdin      string
}

type StatusCode string

const (
	StatusQueued            StatusCode = "Queued"
	StatusRunning           StatusCode = "Running"
	StatusAccepted          StatusCode = "Accepted"
	StatusWrongAnswer       StatusCode = "WrongAnswer"
	StatusRuntimeError      StatusCode = "RuntimeError"
	StatusCompileError      StatusCode = "CompileError"
	StatusTimeLimitExceeded StatusCode = "TimeLimitExceeded"
	StatusInternalError     StatusCode = "InternalError"
)

// ExecutionResult is the decoded outcome of a single remote execution.
// Text fields are raw (transport decoding already applied).
type ExecutionResult struct {
	Stdout            string
	Stderr            string
	CompileOutput     string
	StatusCode        StatusCode
	StatusDescription string
}

type TransportErrorKind string

const (
	KindInvalidRequest TransportErrorKind = "invalid_request"
	KindNetwork        TransportErrorKind = "network"
	KindTimeout        TransportErrorKind = "timeout"
	KindBadStatus      TransportErrorKind = "bad_status"
	KindBackend        TransportErrorKind = "backend"
)

// TransportError is the single failure type surfaced by the client. Retry
// policy belongs to the caller.
type TransportError struct {
	Kind    TransportErrorKind
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("judge0 transport error (%s): %s", e.Kind, e.Message)
}

// Wire format of the backend.

type submissionRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResponse struct {
	Stdout        *string          `json:"stdout"`
	Stderr        *string          `json:"stderr"`
	CompileOutput *string          `json:"compile_output"`
	Message       *string          `json:"message"`
	Status        submissionStatus `json:"status"`
}

// statusFromID maps the backend's numeric status ids onto our enum. Ids 1-2
// are non-terminal; everything above 12 is the backend's own fault.
func statusFromID(id int) StatusCode {
	switch {
	case id == 1:
		return StatusQueued
	case id == 2:
		return StatusRunning
	case id == 3:
		return StatusAccepted
	case id == 4:
		return StatusWrongAnswer
	case id == 5:
		return StatusTimeLimitExceeded
	case id == 6:
		return StatusCompileError
	case id >= 7 && id <= 12:
		return StatusRuntimeError
	default:
		return StatusInternalError
	}
}
