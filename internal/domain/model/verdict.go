package model

import (
	"math"
	"time"
)

type FailureReason string

const (
	FailureMismatch       FailureReason = "Mismatch"
	FailureRuntimeError   FailureReason = "RuntimeError"
	FailureCompileError   FailureReason = "CompileError"
	FailureTimeout        FailureReason = "Timeout"
	FailureTransportError FailureReason = "TransportError"
)

// TestCaseOutcome records what happened on one hidden test case. The
// diagnostic detail is shown to the submitting user only on failing cases.
type TestCaseOutcome struct {
	CaseIndex      int            `json:"case_index"`
	Input          string         `json:"input"`
	ExpectedOutput string         `json:"expected_output"`
	ActualOutput   *string        `json:"actual_output,omitempty"`
	Passed         bool           `json:"passed"`
	FailureReason  *FailureReason `json:"failure_reason,omitempty"`
	Detail         string         `json:"detail,omitempty"`
}

type VerdictStatus string

const (
	VerdictPassed VerdictStatus = "Passed"
	VerdictFailed VerdictStatus = "Failed"
)

// Verdict is the computed outcome of one full evaluation. Created exactly
// once per submit action and immutable afterwards.
type Verdict struct {
	SubmissionID string            `json:"submission_id"`
	UserID       string            `json:"user_id"`
	QuestionID   string            `json:"question_id"`
	ContestID    string            `json:"contest_id"`
	Language     string            `json:"language"`
	SourceText   string            `json:"-"`
	Outcomes     []TestCaseOutcome `json:"outcomes"`
	PassedCount  int               `json:"passed_count"`
	TotalCount   int               `json:"total_count"`
	Score        int               `json:"score"`
	Status       VerdictStatus     `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ComputeScore awards partial credit, rounded to the nearest point.
func ComputeScore(scoreWeight, passedCount, totalCount int) int {
	if totalCount <= 0 {
		return 0
	}
	return int(math.Round(float64(scoreWeight) * float64(passedCount) / float64(totalCount)))
}
