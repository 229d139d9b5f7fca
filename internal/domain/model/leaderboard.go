package model

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	ProblemsSolved int    `json:"problems_solved"`
	Score          int    `json:"score"`

	// ElapsedMs is the ranking key: last passed submission minus first
	// submission. TimeTaken is formatted from it for display only.
	ElapsedMs int64  `json:"elapsed_ms"`
	TimeTaken string `json:"time_taken"`
}
