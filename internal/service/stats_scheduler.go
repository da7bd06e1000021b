package service

import (
	"context"
	"fmt"
	"time"

	"ironworks/gym-app/internal/repository"

	"go.uber.org/zap"
)

// DefaultStatsInterval is the sweep period when none is configured.
const DefaultStatsInterval = 10 * time.Minute

// SweepResult summarizes one pass over the active challenges.
type SweepResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// StatsScheduler periodically refreshes the cached stats of every active
// challenge, bounding how stale those fields can get between mutations.
type StatsScheduler struct {
	challengeRepo repository.ChallengeRepository
	leaderboard   LeaderboardService
	interval      time.Duration
	log           *zap.Logger

	// newTicker is swapped in tests.
	newTicker func(time.Duration) (<-chan time.Time, func())
}

func NewStatsScheduler(challengeRepo repository.ChallengeRepository, leaderboard LeaderboardService, interval time.Duration, log *zap.Logger) *StatsScheduler {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StatsScheduler{
		challengeRepo: challengeRepo,
		leaderboard:   leaderboard,
		interval:      interval,
		log:           log,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *StatsScheduler) Run(ctx context.Context) {
	ticks, stop := s.newTicker(s.interval)
	defer stop()

	s.log.Info("stats scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("stats scheduler stopped")
			return
		case <-ticks:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("stats sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep refreshes every active challenge in turn. A failing challenge is
// logged and counted; it does not abort the rest of the sweep.
func (s *StatsScheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	start := time.Now()

	challenges, err := s.challengeRepo.List(ctx, true)
	if err != nil {
		return result, err
	}

	for _, c := range challenges {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := s.refreshOne(c.ID.Hex(), func() error {
			return s.leaderboard.RefreshChallengeStats(ctx, c.ID)
		}); err != nil {
			result.Failed++
			s.log.Error("challenge stats recompute failed",
				zap.String("challengeId", c.ID.Hex()),
				zap.Error(err),
			)
			continue
		}
		result.Processed++
	}

	s.log.Info("stats sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// refreshOne turns a panic in fn into an error.
func (s *StatsScheduler) refreshOne(id string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic refreshing challenge %s: %v", id, r)
		}
	}()
	return fn()
}
