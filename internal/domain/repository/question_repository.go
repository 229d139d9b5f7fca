package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	UpdateQuestion(ctx context.Context, q *model.Question) error
	FindQuestionByID(ctx context.Context, id string) (*model.Question, error)
	ListQuestionsByContest(ctx context.Context, contestID string) ([]model.Question, error)

	CreateContest(ctx context.Context, c *model.Contest) error
	FindContestByID(ctx context.Context, id string) (*model.Contest, error)
	ListContests(ctx context.Context) ([]model.Contest, error)
}

type pgQuestionRepository struct {
	db *sql.DB
}

func NewPgQuestionRepository(db *sql.DB) QuestionRepository {
	return &pgQuestionRepository{db: db}
}

func (r *pgQuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	query := `INSERT INTO questions (id, contest_id, title, slug, difficulty, category, statement,
	          constraints, sample_input, sample_output, hidden_test_cases, score_weight, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query,
		q.ID, q.ContestID, q.Title, q.Slug, q.Difficulty, q.Category, q.Statement,
		q.Constraints, q.SampleInput, q.SampleOutput, q.HiddenTestCases, q.ScoreWeight, q.CreatedByID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("question with slug %q already exists: %w", q.Slug, common.ErrConflict)
		}
		return fmt.Errorf("pgQuestionRepository.CreateQuestion: %w", err)
	}
	return nil
}

func (r *pgQuestionRepository) UpdateQuestion(ctx context.Context, q *model.Question) error {
	query := `UPDATE questions SET title = $2, slug = $3, difficulty = $4, category = $5,
	          statement = $6, constraints = $7, sample_input = $8, sample_output = $9,
	          hidden_test_cases = $10, score_weight = $11, updated_at = now()
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		q.ID, q.Title, q.Slug, q.Difficulty, q.Category,
		q.Statement, q.Constraints, q.SampleInput, q.SampleOutput,
		q.HiddenTestCases, q.ScoreWeight)
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.UpdateQuestion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

const questionColumns = `id, contest_id, title, slug, difficulty, category, statement,
	constraints, sample_input, sample_output, hidden_test_cases, score_weight, created_by,
	created_at, updated_at`

func (r *pgQuestionRepository) FindQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	q := &model.Question{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&q.ID, &q.ContestID, &q.Title, &q.Slug, &q.Difficulty, &q.Category, &q.Statement,
		&q.Constraints, &q.SampleInput, &q.SampleOutput, &q.HiddenTestCases, &q.ScoreWeight,
		&q.CreatedByID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestionRepository.FindQuestionByID: %w", err)
	}
	return q, nil
}

func (r *pgQuestionRepository) ListQuestionsByContest(ctx context.Context, contestID string) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE contest_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListQuestionsByContest: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.ContestID, &q.Title, &q.Slug, &q.Difficulty, &q.Category, &q.Statement,
			&q.Constraints, &q.SampleInput, &q.SampleOutput, &q.HiddenTestCases, &q.ScoreWeight,
			&q.CreatedByID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.ListQuestionsByContest: scan: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListQuestionsByContest: rows: %w", err)
	}
	return questions, nil
}

func (r *pgQuestionRepository) CreateContest(ctx context.Context, c *model.Contest) error {
	query := `INSERT INTO contests (id, title, start_time, end_time) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Title, c.StartTime, c.EndTime); err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateContest: %w", err)
	}
	return nil
}

func (r *pgQuestionRepository) FindContestByID(ctx context.Context, id string) (*model.Contest, error) {
	query := `SELECT id, title, start_time, end_time, created_at FROM contests WHERE id = $1`
	c := &model.Contest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Title, &c.StartTime, &c.EndTime, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestionRepository.FindContestByID: %w", err)
	}
	return c, nil
}

func (r *pgQuestionRepository) ListContests(ctx context.Context) ([]model.Contest, error) {
	query := `SELECT id, title, start_time, end_time, created_at FROM contests ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListContests: %w", err)
	}
	defer rows.Close()

	var contests []model.Contest
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Title, &c.StartTime, &c.EndTime, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.ListContests: scan: %w", err)
		}
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListContests: rows: %w", err)
	}
	return contests, nil
}
