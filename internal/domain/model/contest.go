package model

import "time"

type Contest struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// Started reports whether the contest has begun; question edits are rejected
// from this point on.
func (c *Contest) Started(now time.Time) bool {
	return !now.Before(c.StartTime)
}

func (c *Contest) Running(now time.Time) bool {
	return c.Started(now) && now.Before(c.EndTime)
}
