package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LeaderboardService computes per-user standings for a contest from the
// append-only submission records. Only the last submission per (user,
// question) counts toward the score — last-submission-wins, not best-of.
type LeaderboardService struct {
	submissionRepo repository.SubmissionRepository
	rdb            *redis.Client
	cacheTTL       time.Duration
	log            *zap.Logger
}

func NewLeaderboardService(subRepo repository.SubmissionRepository, rdb *redis.Client, cacheTTL time.Duration, log *zap.Logger) *LeaderboardService {
	return &LeaderboardService{
		submissionRepo: subRepo,
		rdb:            rdb,
		cacheTTL:       cacheTTL,
		log:            log,
	}
}

func leaderboardCacheKey(contestID string) string {
	return "leaderboard:" + contestID
}

// GetLeaderboard returns ranked standings. The Redis snapshot is purely an
// optimistic layer over the durable store: it is short-lived and dropped on
// every append.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, contestID string) ([]model.LeaderboardEntry, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, leaderboardCacheKey(contestID)).Bytes()
		if err == nil {
			var entries []model.LeaderboardEntry
			if json.Unmarshal(cached, &entries) == nil {
				return entries, nil
			}
		}
	}

	records, err := s.submissionRepo.ListByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: load submissions: %w", err)
	}

	entries := Standings(records)

	if s.rdb != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.rdb.Set(ctx, leaderboardCacheKey(contestID), data, s.cacheTTL).Err(); err != nil {
				s.log.Warn("failed to cache leaderboard", zap.String("contest_id", contestID), zap.Error(err))
			}
		}
	}
	return entries, nil
}

// Invalidate drops the cached snapshot after a new submission record lands.
func (s *LeaderboardService) Invalidate(ctx context.Context, contestID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, leaderboardCacheKey(contestID)).Err(); err != nil {
		s.log.Warn("failed to invalidate leaderboard cache", zap.String("contest_id", contestID), zap.Error(err))
	}
}

type userAggregate struct {
	userID          string
	userName        string
	firstSubmission time.Time
	lastPassed      time.Time
	hasPassed       bool
	latestPerQ      map[string]*model.SubmissionRecord
}

// Standings folds a contest's records (in submission order) into ranked
// entries. Elapsed time is ranked numerically in milliseconds; the display
// string is formatted only after ranking.
func Standings(records []model.SubmissionRecord) []model.LeaderboardEntry {
	aggregates := make(map[string]*userAggregate)
	var order []string

	for i := range records {
		rec := &records[i]
		agg, ok := aggregates[rec.UserID]
		if !ok {
			agg = &userAggregate{
				userID:          rec.UserID,
				userName:        rec.UserName,
				firstSubmission: rec.CreatedAt,
				latestPerQ:      make(map[string]*model.SubmissionRecord),
			}
			aggregates[rec.UserID] = agg
			order = append(order, rec.UserID)
		}
		if rec.CreatedAt.Before(agg.firstSubmission) {
			agg.firstSubmission = rec.CreatedAt
		}
		if rec.Status == model.VerdictPassed && (!agg.hasPassed || rec.CreatedAt.After(agg.lastPassed)) {
			agg.lastPassed = rec.CreatedAt
			agg.hasPassed = true
		}
		// Records arrive in (created_at, seq) order, so the map naturally
		// keeps the latest per question.
		agg.latestPerQ[rec.QuestionID] = rec
	}

	entries := make([]model.LeaderboardEntry, 0, len(order))
	for _, userID := range order {
		agg := aggregates[userID]
		entry := model.LeaderboardEntry{
			UserID:    agg.userID,
			UserName:  agg.userName,
			TimeTaken: "-",
		}
		for _, last := range agg.latestPerQ {
			entry.Score += last.Score
			if last.Status == model.VerdictPassed {
				entry.ProblemsSolved++
			}
		}
		if agg.hasPassed {
			entry.ElapsedMs = agg.lastPassed.Sub(agg.firstSubmission).Milliseconds()
			entry.TimeTaken = formatElapsed(entry.ElapsedMs)
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ProblemsSolved != b.ProblemsSolved {
			return a.ProblemsSolved > b.ProblemsSolved
		}
		if a.TimeTaken != "-" && b.TimeTaken != "-" {
			return a.ElapsedMs < b.ElapsedMs
		}
		return false
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func formatElapsed(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
