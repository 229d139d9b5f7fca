package model

import "time"

// SubmissionRecord is the persisted form of a Verdict plus denormalized
// display fields. Records are append-only: no update or delete path exists,
// which keeps the audit trail intact for cheating investigations. Seq is
// assigned by the store and breaks created_at ties for "latest wins".
type SubmissionRecord struct {
	ID            string            `json:"id"`
	Seq           int64             `json:"seq"`
	UserID        string            `json:"user_id"`
	UserName      string            `json:"user_name"`
	ContestID     string            `json:"contest_id"`
	QuestionID    string            `json:"question_id"`
	QuestionTitle string            `json:"question_title"`
	Language      string            `json:"language"`
	SourceText    string            `json:"-"`
	Outcomes      []TestCaseOutcome `json:"outcomes,omitempty"`
	PassedCount   int               `json:"passed_count"`
	TotalCount    int               `json:"total_count"`
	Score         int               `json:"score"`
	Status        VerdictStatus     `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// RecordFromVerdict builds the persisted form of a verdict.
func RecordFromVerdict(v *Verdict, userName, questionTitle string) *SubmissionRecord {
	return &SubmissionRecord{
		ID:            v.SubmissionID,
		UserID:        v.UserID,
		UserName:      userName,
		ContestID:     v.ContestID,
		QuestionID:    v.QuestionID,
		QuestionTitle: questionTitle,
		Language:      v.Language,
		SourceText:    v.SourceText,
		Outcomes:      v.Outcomes,
		PassedCount:   v.PassedCount,
		TotalCount:    v.TotalCount,
		Score:         v.Score,
		Status:        v.Status,
		CreatedAt:     v.CreatedAt,
	}
}
