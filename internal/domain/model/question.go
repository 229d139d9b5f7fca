package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type QuestionDifficulty string

const (
	DifficultyEasy   QuestionDifficulty = "Easy"
	DifficultyMedium QuestionDifficulty = "Medium"
	DifficultyHard   QuestionDifficulty = "Hard"
)

// Question is immutable once its contest is running; admins create and edit
// questions only before the start time.
type Question struct {
	ID         string             `json:"id"`
	ContestID  string             `json:"contest_id"`
	Title      string             `json:"title"`
	Slug       string             `json:"slug"`
	Difficulty QuestionDifficulty `json:"difficulty"`
	Category   string             `json:"category"`
	Statement  string             `json:"statement"`
	Constraints string            `json:"constraints"`

	SampleInput  string `json:"sample_input"`
	SampleOutput string `json:"sample_output"`

	// Serialized JSON list of {input, output} pairs. Kept opaque in storage
	// and parsed at evaluation time; never shown to contestants.
	HiddenTestCases string `json:"-"`

	// Points awarded on a full pass; the single source of truth for scoring.
	ScoreWeight int `json:"score_weight"`

	CreatedByID string    `json:"created_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HiddenTestCase is one scoring pair. Input and output coerce scalar JSON
// values (numbers, bools) to their text form, matching how the payloads are
// authored in the admin forms.
type HiddenTestCase struct {
	Input  LooseString `json:"input"`
	Output LooseString `json:"output"`
}

type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = LooseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = LooseString(num.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = LooseString(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("test case field is neither string nor scalar: %s", string(data))
}

// ParseHiddenTestCases decodes the stored payload. A malformed payload is a
// configuration fault of the question, reported to the caller before any
// execution is dispatched.
func (q *Question) ParseHiddenTestCases() ([]HiddenTestCase, error) {
	payload := q.HiddenTestCases
	if payload == "" {
		payload = "[]"
	}
	var cases []HiddenTestCase
	if err := json.Unmarshal([]byte(payload), &cases); err != nil {
		return nil, fmt.Errorf("hidden test cases for question %s are malformed: %w", q.ID, err)
	}
	return cases, nil
}
