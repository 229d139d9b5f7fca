package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/judge0"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedExecutor returns canned results per call, in dispatch order.
type scriptedExecutor struct {
	mu    sync.Mutex
	calls []judge0.ExecutionRequest
	run   func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error)
}

func (e *scriptedExecutor) Execute(ctx context.Context, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
	e.mu.Lock()
	call := len(e.calls)
	e.calls = append(e.calls, req)
	e.mu.Unlock()
	return e.run(call, req)
}

func accepted(stdout string) *judge0.ExecutionResult {
	return &judge0.ExecutionResult{Stdout: stdout, StatusCode: judge0.StatusAccepted}
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error { return nil }
func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, common.ErrNotFound
}
func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, common.ErrNotFound
}
func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

type fakeQuestionRepo struct {
	questions map[string]*model.Question
}

func (r *fakeQuestionRepo) CreateQuestion(ctx context.Context, q *model.Question) error { return nil }
func (r *fakeQuestionRepo) UpdateQuestion(ctx context.Context, q *model.Question) error { return nil }
func (r *fakeQuestionRepo) FindQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	if q, ok := r.questions[id]; ok {
		return q, nil
	}
	return nil, common.ErrNotFound
}
func (r *fakeQuestionRepo) ListQuestionsByContest(ctx context.Context, contestID string) ([]model.Question, error) {
	return nil, nil
}
func (r *fakeQuestionRepo) CreateContest(ctx context.Context, c *model.Contest) error { return nil }
func (r *fakeQuestionRepo) FindContestByID(ctx context.Context, id string) (*model.Contest, error) {
	return nil, common.ErrNotFound
}
func (r *fakeQuestionRepo) ListContests(ctx context.Context) ([]model.Contest, error) {
	return nil, nil
}

type fakeSubmissionRepo struct {
	mu        sync.Mutex
	appended  []*model.SubmissionRecord
	appendErr error
}

func (r *fakeSubmissionRepo) Append(ctx context.Context, rec *model.SubmissionRecord) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Seq = int64(len(r.appended) + 1)
	r.appended = append(r.appended, rec)
	return nil
}
func (r *fakeSubmissionRepo) GetByID(ctx context.Context, id string) (*model.SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.appended {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, common.ErrNotFound
}
func (r *fakeSubmissionRepo) ListByContest(ctx context.Context, contestID string) ([]model.SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SubmissionRecord
	for _, rec := range r.appended {
		if rec.ContestID == contestID {
			out = append(out, *rec)
		}
	}
	return out, nil
}
func (r *fakeSubmissionRepo) ListByUserAndContest(ctx context.Context, userID, contestID string) ([]model.SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SubmissionRecord
	for _, rec := range r.appended {
		if rec.UserID == userID && rec.ContestID == contestID {
			out = append(out, *rec)
		}
	}
	return out, nil
}
func (r *fakeSubmissionRepo) LatestByUserAndQuestion(ctx context.Context, contestID string) (map[repository.UserQuestionKey]*model.SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := map[repository.UserQuestionKey]*model.SubmissionRecord{}
	for _, rec := range r.appended {
		if rec.ContestID != contestID {
			continue
		}
		key := repository.UserQuestionKey{UserID: rec.UserID, QuestionID: rec.QuestionID}
		cur, ok := latest[key]
		if !ok || rec.CreatedAt.After(cur.CreatedAt) ||
			(rec.CreatedAt.Equal(cur.CreatedAt) && rec.Seq > cur.Seq) {
			latest[key] = rec
		}
	}
	return latest, nil
}

func testQuestion(hidden string) *model.Question {
	return &model.Question{
		ID:              "q1",
		ContestID:       "c1",
		Title:           "Sum",
		SampleInput:     "1 2",
		SampleOutput:    "3",
		HiddenTestCases: hidden,
		ScoreWeight:     50,
	}
}

func newTestJudgeService(exec Executor, question *model.Question, subRepo *fakeSubmissionRepo) *JudgeService {
	questions := map[string]*model.Question{}
	if question != nil {
		questions[question.ID] = question
	}
	return NewJudgeService(
		exec,
		&fakeQuestionRepo{questions: questions},
		subRepo,
		&fakeUserRepo{users: map[string]*model.User{
			"u1": {ID: "u1", Username: "alice", Role: model.RoleStudent},
		}},
		nil,
		JudgeConfig{ExecutionTimeout: time.Second, CaseConcurrency: 1},
		zap.NewNop(),
	)
}

func TestSubmitAllCasesPass(t *testing.T) {
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		outputs := []string{"3\n", "7\n"}
		return accepted(outputs[call]), nil
	}}
	subRepo := &fakeSubmissionRepo{}
	question := testQuestion(`[{"input":"1 2","output":"3"},{"input":"3 4","output":"7"}]`)
	svc := newTestJudgeService(exec, question, subRepo)

	verdict, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "print(sum(map(int, input().split())))",
	})
	require.NoError(t, err)

	assert.Equal(t, model.VerdictPassed, verdict.Status)
	assert.Equal(t, 2, verdict.PassedCount)
	assert.Equal(t, 2, verdict.TotalCount)
	assert.Equal(t, 50, verdict.Score)
	require.Len(t, verdict.Outcomes, 2)
	assert.True(t, verdict.Outcomes[0].Passed)
	assert.True(t, verdict.Outcomes[1].Passed)

	// Every hidden case was dispatched with its own stdin.
	require.Len(t, exec.calls, 2)
	assert.Equal(t, "1 2", exec.calls[0].Stdin)
	assert.Equal(t, "3 4", exec.calls[1].Stdin)
	assert.Equal(t, 71, exec.calls[0].LanguageID)

	require.Len(t, subRepo.appended, 1)
	assert.Equal(t, verdict.SubmissionID, subRepo.appended[0].ID)
}

func TestSubmitPartialCreditWithCompileError(t *testing.T) {
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		if call == 0 {
			return accepted("3"), nil
		}
		return &judge0.ExecutionResult{
			StatusCode:    judge0.StatusCompileError,
			CompileOutput: "error: expected ';'",
		}, nil
	}}
	subRepo := &fakeSubmissionRepo{}
	question := testQuestion(`[{"input":"1 2","output":"3"},{"input":"3 4","output":"7"}]`)
	svc := newTestJudgeService(exec, question, subRepo)

	verdict, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "cpp", SourceText: "int main() {}",
	})
	require.NoError(t, err)

	assert.Equal(t, model.VerdictFailed, verdict.Status)
	assert.Equal(t, 1, verdict.PassedCount)
	assert.Equal(t, 25, verdict.Score)

	failing := verdict.Outcomes[1]
	require.NotNil(t, failing.FailureReason)
	assert.Equal(t, model.FailureCompileError, *failing.FailureReason)
	assert.Equal(t, "error: expected ';'", failing.Detail)
}

func TestSubmitTrimsBeforeComparing(t *testing.T) {
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		return accepted("  42\n\n"), nil
	}}
	subRepo := &fakeSubmissionRepo{}
	question := testQuestion(`[{"input":"x","output":" 42 "}]`)
	svc := newTestJudgeService(exec, question, subRepo)

	verdict, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "print(42)",
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictPassed, verdict.Status)

	// Interior whitespace still counts.
	exec2 := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		return accepted("4 2"), nil
	}}
	svc2 := newTestJudgeService(exec2, testQuestion(`[{"input":"x","output":"42"}]`), &fakeSubmissionRepo{})
	verdict2, err := svc2.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "print('4 2')",
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictFailed, verdict2.Status)
	require.NotNil(t, verdict2.Outcomes[0].FailureReason)
	assert.Equal(t, model.FailureMismatch, *verdict2.Outcomes[0].FailureReason)
	require.NotNil(t, verdict2.Outcomes[0].ActualOutput)
	assert.Equal(t, "4 2", *verdict2.Outcomes[0].ActualOutput)
}

func TestSubmitRejectsMissingOrMalformedCases(t *testing.T) {
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		t.Fatal("executor must not be called")
		return nil, nil
	}}

	for name, hidden := range map[string]string{
		"empty list": `[]`,
		"no payload": ``,
		"malformed":  `{"oops"`,
	} {
		t.Run(name, func(t *testing.T) {
			subRepo := &fakeSubmissionRepo{}
			svc := newTestJudgeService(exec, testQuestion(hidden), subRepo)
			_, err := svc.Submit(context.Background(), "u1", SubmitRequest{
				QuestionID: "q1", Language: "python", SourceText: "x",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrConfiguration)
			assert.Empty(t, subRepo.appended)
		})
	}
}

func TestSubmitRejectsUnknownLanguage(t *testing.T) {
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		return accepted(""), nil
	}}
	svc := newTestJudgeService(exec, testQuestion(`[{"input":"x","output":"y"}]`), &fakeSubmissionRepo{})

	_, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "cobol", SourceText: "x",
	})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestSubmitCountsTimedOutCaseAsFailed(t *testing.T) {
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		if call == 1 {
			return nil, &judge0.TransportError{Kind: judge0.KindTimeout, Message: "execution call exceeded its deadline"}
		}
		return accepted("ok"), nil
	}}
	subRepo := &fakeSubmissionRepo{}
	question := testQuestion(`[{"input":"a","output":"ok"},{"input":"b","output":"ok"},{"input":"c","output":"ok"}]`)
	svc := newTestJudgeService(exec, question, subRepo)

	verdict, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "x",
	})
	require.NoError(t, err)

	assert.Equal(t, model.VerdictFailed, verdict.Status)
	assert.Equal(t, 2, verdict.PassedCount)
	assert.Equal(t, 3, verdict.TotalCount)
	assert.Equal(t, 33, verdict.Score)

	require.NotNil(t, verdict.Outcomes[1].FailureReason)
	assert.Equal(t, model.FailureTimeout, *verdict.Outcomes[1].FailureReason)
	// The remaining case was still evaluated.
	assert.True(t, verdict.Outcomes[2].Passed)
	assert.Len(t, exec.calls, 3)
}

func TestSubmitReturnsVerdictWhenPersistFails(t *testing.T) {
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		return accepted("3"), nil
	}}
	subRepo := &fakeSubmissionRepo{appendErr: errors.New("connection refused")}
	svc := newTestJudgeService(exec, testQuestion(`[{"input":"1 2","output":"3"}]`), subRepo)

	verdict, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "x",
	})
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.Equal(t, model.VerdictPassed, verdict.Status)
}

func TestSubmitAbortsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		cancel()
		return accepted("ok"), nil
	}}
	subRepo := &fakeSubmissionRepo{}
	question := testQuestion(`[{"input":"a","output":"ok"},{"input":"b","output":"ok"}]`)
	svc := newTestJudgeService(exec, question, subRepo)

	_, err := svc.Submit(ctx, "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "x",
	})
	require.Error(t, err)
	assert.Empty(t, subRepo.appended)
}

func TestRunSample(t *testing.T) {
	t.Run("returns stdout on success", func(t *testing.T) {
		exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
			return accepted("3\n"), nil
		}}
		svc := newTestJudgeService(exec, testQuestion(`[]`), &fakeSubmissionRepo{})

		res, err := svc.RunSample(context.Background(), SampleRunRequest{
			QuestionID: "q1", Language: "python", SourceText: "print(3)",
		})
		require.NoError(t, err)
		assert.Equal(t, "3\n", res.Output)
		assert.Empty(t, res.Error)
		// Sample runs use the question's visible sample input.
		require.Len(t, exec.calls, 1)
		assert.Equal(t, "1 2", exec.calls[0].Stdin)
	})

	t.Run("surfaces execution errors as text", func(t *testing.T) {
		exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
			return &judge0.ExecutionResult{
				StatusCode: judge0.StatusRuntimeError,
				Stderr:     "ZeroDivisionError: division by zero",
			}, nil
		}}
		svc := newTestJudgeService(exec, testQuestion(`[]`), &fakeSubmissionRepo{})

		res, err := svc.RunSample(context.Background(), SampleRunRequest{
			QuestionID: "q1", Language: "python", SourceText: "1/0",
		})
		require.NoError(t, err)
		assert.Empty(t, res.Output)
		assert.Equal(t, "ZeroDivisionError: division by zero", res.Error)
	})

	t.Run("surfaces transport failures as text", func(t *testing.T) {
		exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
			return nil, &judge0.TransportError{Kind: judge0.KindNetwork, Message: "dial tcp: connection refused"}
		}}
		svc := newTestJudgeService(exec, testQuestion(`[]`), &fakeSubmissionRepo{})

		res, err := svc.RunSample(context.Background(), SampleRunRequest{
			QuestionID: "q1", Language: "python", SourceText: "print(3)",
		})
		require.NoError(t, err)
		assert.Equal(t, "dial tcp: connection refused", res.Error)
	})
}

func TestContestScoresKeepsLatestPerQuestion(t *testing.T) {
	call := 0
	exec := &scriptedExecutor{run: func(_ int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		call++
		if call == 1 {
			return accepted("3"), nil
		}
		return accepted("wrong"), nil
	}}
	subRepo := &fakeSubmissionRepo{}
	svc := newTestJudgeService(exec, testQuestion(`[{"input":"1 2","output":"3"}]`), subRepo)

	// A passing submission followed by a failing one: the failing one is the
	// latest and is what the contest scores report.
	_, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "good",
	})
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "bad",
	})
	require.NoError(t, err)

	scores, err := svc.ContestScores(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, second.SubmissionID, scores[0].ID)
	assert.Equal(t, model.VerdictFailed, scores[0].Status)
}

func TestGetSubmissionAuthorization(t *testing.T) {
	exec := &scriptedExecutor{run: func(call int, req judge0.ExecutionRequest) (*judge0.ExecutionResult, error) {
		return accepted("3"), nil
	}}
	subRepo := &fakeSubmissionRepo{}
	svc := newTestJudgeService(exec, testQuestion(`[{"input":"1 2","output":"3"}]`), subRepo)

	verdict, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		QuestionID: "q1", Language: "python", SourceText: "x",
	})
	require.NoError(t, err)

	rec, err := svc.GetSubmission(context.Background(), "u1", model.RoleStudent, verdict.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, verdict.SubmissionID, rec.ID)

	_, err = svc.GetSubmission(context.Background(), "u2", model.RoleStudent, verdict.SubmissionID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.GetSubmission(context.Background(), "u2", model.RoleAdmin, verdict.SubmissionID)
	assert.NoError(t, err)
}
