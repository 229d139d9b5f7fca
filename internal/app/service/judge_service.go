package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/judge0"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor abstracts the remote execution backend.
type Executor interface {
	Execute(ctx context.Context, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error)
}

type JudgeConfig struct {
	// ExecutionTimeout bounds each individual backend call.
	ExecutionTimeout time.Duration

	// CaseConcurrency is the number of hidden test cases evaluated at once
	// for a single submission. Degree 1 evaluates sequentially in case
	// order, which keeps the rate-limited backend from being flooded.
	CaseConcurrency int
}

// JudgeService drives submissions through the execution backend: one case
// for a sample run, every hidden case for a full evaluation, then scoring
// and persistence of the verdict.
type JudgeService struct {
	executor       Executor
	questionRepo   repository.QuestionRepository
	submissionRepo repository.SubmissionRepository
	userRepo       repository.UserRepository
	leaderboard    *LeaderboardService
	cfg            JudgeConfig
	log            *zap.Logger
	now            func() time.Time
}

func NewJudgeService(
	executor Executor,
	questionRepo repository.QuestionRepository,
	submissionRepo repository.SubmissionRepository,
	userRepo repository.UserRepository,
	leaderboard *LeaderboardService,
	cfg JudgeConfig,
	log *zap.Logger,
) *JudgeService {
	if cfg.CaseConcurrency < 1 {
		cfg.CaseConcurrency = 1
	}
	return &JudgeService{
		executor:       executor,
		questionRepo:   questionRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		leaderboard:    leaderboard,
		cfg:            cfg,
		log:            log,
		now:            time.Now,
	}
}

type SampleRunRequest struct {
	QuestionID string `json:"question_id"`
	Language   string `json:"language"`
	SourceText string `json:"source_text"`
}

// SampleRunResult carries either the program output or the raw error text,
// mirroring what the contestant sees in the output pane.
type SampleRunResult struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunSample executes the submission once against the question's visible
// sample input. Nothing is scored and nothing is persisted.
func (s *JudgeService) RunSample(ctx context.Context, req SampleRunRequest) (*SampleRunResult, error) {
	question, err := s.questionRepo.FindQuestionByID(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	lang, ok := model.LanguageBySlug(req.Language)
	if !ok {
		return nil, fmt.Errorf("unknown language %q: %w", req.Language, common.ErrBadRequest)
	}

	res, err := s.executeOnce(ctx, lang, req.SourceText, question.SampleInput)
	if err != nil {
		var te *judge0.TransportError
		if errors.As(err, &te) {
			return &SampleRunResult{Error: te.Message}, nil
		}
		return nil, err
	}

	if errText := executionErrorText(res); errText != "" {
		return &SampleRunResult{Error: errText}, nil
	}
	return &SampleRunResult{Output: res.Stdout}, nil
}

type SubmitRequest struct {
	QuestionID string `json:"question_id"`
	Language   string `json:"language"`
	SourceText string `json:"source_text"`
}

// Submit runs a full evaluation against the question's hidden test cases and
// persists the resulting verdict. Only a configuration fault (missing or
// malformed test cases) prevents a verdict from being produced; per-case
// failures of any kind are absorbed into the verdict's outcomes. A failed
// persist is logged and does not withhold the verdict from the caller.
func (s *JudgeService) Submit(ctx context.Context, userID string, req SubmitRequest) (*model.Verdict, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	question, err := s.questionRepo.FindQuestionByID(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	lang, ok := model.LanguageBySlug(req.Language)
	if !ok {
		return nil, fmt.Errorf("unknown language %q: %w", req.Language, common.ErrBadRequest)
	}

	cases, err := question.ParseHiddenTestCases()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrConfiguration)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("question %s has no hidden test cases: %w", question.ID, common.ErrConfiguration)
	}

	outcomes, err := s.evaluateCases(ctx, lang, req.SourceText, cases)
	if err != nil {
		// The evaluation was cancelled; whatever the backend returned for
		// in-flight cases is discarded, not scored, not persisted.
		return nil, err
	}

	passed := 0
	for _, o := range outcomes {
		if o.Passed {
			passed++
		}
	}

	verdict := &model.Verdict{
		SubmissionID: uuid.NewString(),
		UserID:       user.ID,
		QuestionID:   question.ID,
		ContestID:    question.ContestID,
		Language:     lang.Slug,
		SourceText:   req.SourceText,
		Outcomes:     outcomes,
		PassedCount:  passed,
		TotalCount:   len(outcomes),
		Score:        model.ComputeScore(question.ScoreWeight, passed, len(outcomes)),
		CreatedAt:    s.now(),
	}
	if passed == len(outcomes) {
		verdict.Status = model.VerdictPassed
	} else {
		verdict.Status = model.VerdictFailed
	}

	record := model.RecordFromVerdict(verdict, user.Username, question.Title)
	if err := s.submissionRepo.Append(ctx, record); err != nil {
		// Judging correctness is decoupled from persistence durability: the
		// verdict still goes back to the caller.
		s.log.Warn("verdict computed but not persisted",
			zap.String("submission_id", verdict.SubmissionID),
			zap.String("user_id", verdict.UserID),
			zap.String("question_id", verdict.QuestionID),
			zap.Error(err))
		return verdict, nil
	}

	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx, verdict.ContestID)
	}
	return verdict, nil
}

// History returns the caller's own submission records for a contest, newest
// first. Failing-case detail is already scoped to the owner, so no redaction
// is needed here.
func (s *JudgeService) History(ctx context.Context, userID, contestID string) ([]model.SubmissionRecord, error) {
	return s.submissionRepo.ListByUserAndContest(ctx, userID, contestID)
}

// GetSubmission fetches one record; only its owner or an admin may see it.
func (s *JudgeService) GetSubmission(ctx context.Context, requesterID, requesterRole, id string) (*model.SubmissionRecord, error) {
	rec, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != requesterID && requesterRole != model.RoleAdmin {
		return nil, common.ErrForbidden
	}
	return rec, nil
}

// ContestScores returns the latest record per (user, question) for a contest,
// the exact rows the standings fold over. Admin-facing.
func (s *JudgeService) ContestScores(ctx context.Context, contestID string) ([]model.SubmissionRecord, error) {
	latest, err := s.submissionRepo.LatestByUserAndQuestion(ctx, contestID)
	if err != nil {
		return nil, err
	}
	out := make([]model.SubmissionRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserName != out[j].UserName {
			return out[i].UserName < out[j].UserName
		}
		return out[i].QuestionTitle < out[j].QuestionTitle
	})
	return out, nil
}

// evaluateCases runs the hidden cases with the configured concurrency degree
// and returns outcomes in case order. The only error it returns is context
// cancellation; every per-case failure becomes a failed outcome instead.
func (s *JudgeService) evaluateCases(ctx context.Context, lang model.Language, source string, cases []model.HiddenTestCase) ([]model.TestCaseOutcome, error) {
	outcomes := make([]model.TestCaseOutcome, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.CaseConcurrency)
	for i, tc := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.executeOnce(gctx, lang, source, string(tc.Input))
			if gctx.Err() != nil {
				return gctx.Err()
			}
			outcomes[i] = judgeCase(i, tc, res, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *JudgeService) executeOnce(ctx context.Context, lang model.Language, source, stdin string) (*judge0.ExecutionResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExecutionTimeout)
	defer cancel()
	return s.executor.Execute(execCtx, judge0.ExecutionRequest{
		SourceText: source,
		LanguageID: lang.BackendID,
		Stdin:      stdin,
	})
}

// judgeCase classifies one execution into a TestCaseOutcome. Output
// comparison only happens when the execution itself succeeded; it is exact
// string equality after trimming leading and trailing whitespace on both
// sides, case-sensitive.
func judgeCase(index int, tc model.HiddenTestCase, res *judge0.ExecutionResult, execErr error) model.TestCaseOutcome {
	outcome := model.TestCaseOutcome{
		CaseIndex:      index,
		Input:          string(tc.Input),
		ExpectedOutput: strings.TrimSpace(string(tc.Output)),
	}

	if execErr != nil {
		reason := model.FailureTransportError
		var te *judge0.TransportError
		if errors.As(execErr, &te) {
			if te.Kind == judge0.KindTimeout {
				reason = model.FailureTimeout
			}
			outcome.Detail = te.Message
		} else {
			outcome.Detail = execErr.Error()
		}
		outcome.FailureReason = &reason
		return outcome
	}

	switch res.StatusCode {
	case judge0.StatusCompileError:
		reason := model.FailureCompileError
		outcome.FailureReason = &reason
		outcome.Detail = firstNonEmpty(res.CompileOutput, res.Stderr, res.StatusDescription)
		return outcome
	case judge0.StatusRuntimeError:
		reason := model.FailureRuntimeError
		outcome.FailureReason = &reason
		outcome.Detail = firstNonEmpty(res.Stderr, res.StatusDescription)
		return outcome
	case judge0.StatusTimeLimitExceeded:
		reason := model.FailureTimeout
		outcome.FailureReason = &reason
		outcome.Detail = res.StatusDescription
		return outcome
	case judge0.StatusInternalError, judge0.StatusQueued, judge0.StatusRunning:
		// A backend fault or a non-terminal status on a wait-for-result
		// call; either way the case could not be judged.
		reason := model.FailureTransportError
		outcome.FailureReason = &reason
		outcome.Detail = firstNonEmpty(res.StatusDescription, "backend returned no terminal result")
		return outcome
	}

	actual := strings.TrimSpace(res.Stdout)
	outcome.ActualOutput = &actual
	if actual == outcome.ExpectedOutput {
		outcome.Passed = true
	} else {
		reason := model.FailureMismatch
		outcome.FailureReason = &reason
	}
	return outcome
}

func executionErrorText(res *judge0.ExecutionResult) string {
	switch res.StatusCode {
	case judge0.StatusCompileError, judge0.StatusRuntimeError,
		judge0.StatusTimeLimitExceeded, judge0.StatusInternalError:
		return firstNonEmpty(res.Stderr, res.CompileOutput, res.StatusDescription)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

