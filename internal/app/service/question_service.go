package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// QuestionService owns admin-side contest and question authoring. Questions
// are immutable once their contest is running: edits past the start time are
// rejected, so existing verdicts are never judged against moved goalposts.
type QuestionService struct {
	questionRepo       repository.QuestionRepository
	defaultScoreWeight int
	log                *zap.Logger
	now                func() time.Time
}

func NewQuestionService(questionRepo repository.QuestionRepository, defaultScoreWeight int, log *zap.Logger) *QuestionService {
	return &QuestionService{
		questionRepo:       questionRepo,
		defaultScoreWeight: defaultScoreWeight,
		log:                log,
		now:                time.Now,
	}
}

type CreateContestRequest struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (s *QuestionService) CreateContest(ctx context.Context, req CreateContestRequest) (*model.Contest, error) {
	if req.Title == "" || !req.EndTime.After(req.StartTime) {
		return nil, common.ErrBadRequest
	}
	contest := &model.Contest{
		ID:        uuid.NewString(),
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.questionRepo.CreateContest(ctx, contest); err != nil {
		return nil, err
	}
	return contest, nil
}

func (s *QuestionService) ListContests(ctx context.Context) ([]model.Contest, error) {
	return s.questionRepo.ListContests(ctx)
}

type QuestionInput struct {
	Title           string `json:"title"`
	Difficulty      string `json:"difficulty"`
	Category        string `json:"category"`
	Statement       string `json:"statement"`
	Constraints     string `json:"constraints"`
	SampleInput     string `json:"sample_input"`
	SampleOutput    string `json:"sample_output"`
	HiddenTestCases string `json:"hidden_test_cases"`
	ScoreWeight     *int   `json:"score_weight,omitempty"`
}

func (s *QuestionService) CreateQuestion(ctx context.Context, adminID, contestID string, req QuestionInput) (*model.Question, error) {
	contest, err := s.questionRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Started(s.now()) {
		return nil, fmt.Errorf("cannot add question to contest %s: %w", contestID, common.ErrContestLocked)
	}
	if err := validateQuestionInput(req); err != nil {
		return nil, err
	}

	weight := s.defaultScoreWeight
	if req.ScoreWeight != nil {
		weight = *req.ScoreWeight
	}
	if weight <= 0 {
		return nil, fmt.Errorf("score weight must be positive: %w", common.ErrValidation)
	}

	question := &model.Question{
		ID:              uuid.NewString(),
		ContestID:       contestID,
		Title:           req.Title,
		Slug:            slug.Make(req.Title),
		Difficulty:      model.QuestionDifficulty(req.Difficulty),
		Category:        req.Category,
		Statement:       req.Statement,
		Constraints:     req.Constraints,
		SampleInput:     req.SampleInput,
		SampleOutput:    req.SampleOutput,
		HiddenTestCases: req.HiddenTestCases,
		ScoreWeight:     weight,
		CreatedByID:     adminID,
	}
	if err := s.questionRepo.CreateQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, questionID string, req QuestionInput) (*model.Question, error) {
	question, err := s.questionRepo.FindQuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	contest, err := s.questionRepo.FindContestByID(ctx, question.ContestID)
	if err != nil {
		return nil, err
	}
	if contest.Started(s.now()) {
		return nil, fmt.Errorf("cannot edit question %s: %w", questionID, common.ErrContestLocked)
	}
	if err := validateQuestionInput(req); err != nil {
		return nil, err
	}

	question.Title = req.Title
	question.Slug = slug.Make(req.Title)
	question.Difficulty = model.QuestionDifficulty(req.Difficulty)
	question.Category = req.Category
	question.Statement = req.Statement
	question.Constraints = req.Constraints
	question.SampleInput = req.SampleInput
	question.SampleOutput = req.SampleOutput
	question.HiddenTestCases = req.HiddenTestCases
	if req.ScoreWeight != nil {
		question.ScoreWeight = *req.ScoreWeight
	}
	if err := s.questionRepo.UpdateQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	return s.questionRepo.FindQuestionByID(ctx, id)
}

func (s *QuestionService) ListQuestions(ctx context.Context, contestID string) ([]model.Question, error) {
	return s.questionRepo.ListQuestionsByContest(ctx, contestID)
}

// validateQuestionInput rejects obviously broken authoring early; a payload
// that parses here will not trip the configuration check at judging time.
func validateQuestionInput(req QuestionInput) error {
	if req.Title == "" || req.Statement == "" {
		return fmt.Errorf("title and statement are required: %w", common.ErrValidation)
	}
	if req.HiddenTestCases != "" {
		var cases []model.HiddenTestCase
		if err := json.Unmarshal([]byte(req.HiddenTestCases), &cases); err != nil {
			return fmt.Errorf("hidden test cases are not a valid JSON list of {input, output} pairs: %w", common.ErrValidation)
		}
	}
	return nil
}
