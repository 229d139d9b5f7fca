package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

// UserQuestionKey identifies a (user, question) pair for latest-wins queries.
type UserQuestionKey struct {
	UserID     string
	QuestionID string
}

// SubmissionRepository owns the append-only submission records. Latest-wins
// ordering is by created_at with seq as the tie-break, never by row identity.
type SubmissionRepository interface {
	Append(ctx context.Context, rec *model.SubmissionRecord) error
	GetByID(ctx context.Context, id string) (*model.SubmissionRecord, error)
	ListByContest(ctx context.Context, contestID string) ([]model.SubmissionRecord, error)
	ListByUserAndContest(ctx context.Context, userID, contestID string) ([]model.SubmissionRecord, error)
	LatestByUserAndQuestion(ctx context.Context, contestID string) (map[UserQuestionKey]*model.SubmissionRecord, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, seq, user_id, user_name, contest_id, question_id, question_title,
	language, source_text, outcomes, passed_count, total_count, score, status, created_at`

// Append inserts the record and, in the same transaction, upserts the
// per-(contest, user, question) latest-score row. The upsert only replaces a
// row that is strictly older, so concurrent appends from the same user (two
// tabs, two devices) cannot regress the standing regardless of commit order.
func (r *pgSubmissionRepository) Append(ctx context.Context, rec *model.SubmissionRecord) error {
	outcomes, err := json.Marshal(rec.Outcomes)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Append: marshal outcomes: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Append: begin: %w", err)
	}
	defer tx.Rollback()

	insert := `INSERT INTO submissions (id, user_id, user_name, contest_id, question_id, question_title,
	           language, source_text, outcomes, passed_count, total_count, score, status, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	           RETURNING seq`
	err = tx.QueryRowContext(ctx, insert,
		rec.ID, rec.UserID, rec.UserName, rec.ContestID, rec.QuestionID, rec.QuestionTitle,
		rec.Language, rec.SourceText, outcomes, rec.PassedCount, rec.TotalCount,
		rec.Score, rec.Status, rec.CreatedAt,
	).Scan(&rec.Seq)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Append: insert: %w", err)
	}

	upsert := `INSERT INTO contest_scores (contest_id, user_id, question_id, score, status, submitted_at, seq)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           ON CONFLICT (contest_id, user_id, question_id) DO UPDATE
	           SET score = EXCLUDED.score, status = EXCLUDED.status,
	               submitted_at = EXCLUDED.submitted_at, seq = EXCLUDED.seq
	           WHERE (contest_scores.submitted_at, contest_scores.seq)
	               < (EXCLUDED.submitted_at, EXCLUDED.seq)`
	if _, err := tx.ExecContext(ctx, upsert,
		rec.ContestID, rec.UserID, rec.QuestionID, rec.Score, rec.Status, rec.CreatedAt, rec.Seq,
	); err != nil {
		return fmt.Errorf("pgSubmissionRepository.Append: upsert score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgSubmissionRepository.Append: commit: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetByID(ctx context.Context, id string) (*model.SubmissionRecord, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	rec, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetByID: %w", err)
	}
	return rec, nil
}

func (r *pgSubmissionRepository) ListByContest(ctx context.Context, contestID string) ([]model.SubmissionRecord, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE contest_id = $1 ORDER BY created_at ASC, seq ASC`
	return r.list(ctx, query, contestID)
}

func (r *pgSubmissionRepository) ListByUserAndContest(ctx context.Context, userID, contestID string) ([]model.SubmissionRecord, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE user_id = $1 AND contest_id = $2 ORDER BY created_at DESC, seq DESC`
	return r.list(ctx, query, userID, contestID)
}

func (r *pgSubmissionRepository) LatestByUserAndQuestion(ctx context.Context, contestID string) (map[UserQuestionKey]*model.SubmissionRecord, error) {
	query := `SELECT DISTINCT ON (user_id, question_id) ` + submissionColumns + `
	          FROM submissions WHERE contest_id = $1
	          ORDER BY user_id, question_id, created_at DESC, seq DESC`
	records, err := r.list(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	latest := make(map[UserQuestionKey]*model.SubmissionRecord, len(records))
	for i := range records {
		rec := &records[i]
		latest[UserQuestionKey{UserID: rec.UserID, QuestionID: rec.QuestionID}] = rec
	}
	return latest, nil
}

func (r *pgSubmissionRepository) list(ctx context.Context, query string, args ...any) ([]model.SubmissionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.list: %w", err)
	}
	defer rows.Close()

	var records []model.SubmissionRecord
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.list: scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.list: rows: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*model.SubmissionRecord, error) {
	rec := &model.SubmissionRecord{}
	var outcomes []byte
	err := row.Scan(
		&rec.ID, &rec.Seq, &rec.UserID, &rec.UserName, &rec.ContestID, &rec.QuestionID,
		&rec.QuestionTitle, &rec.Language, &rec.SourceText, &outcomes,
		&rec.PassedCount, &rec.TotalCount, &rec.Score, &rec.Status, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(outcomes) > 0 {
		if err := json.Unmarshal(outcomes, &rec.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshal outcomes: %w", err)
		}
	}
	return rec, nil
}
