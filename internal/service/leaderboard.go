package service

import (
	"context"
	"errors"
	"math"
	"slices"

	"ironworks/gym-app/internal/cache"
	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardEntry is one ranked row of a live leaderboard page.
type LeaderboardEntry struct {
	Rank int `json:"rank"` // 1-based position within the page
	domain.LeaderboardSummary
}

// Leaderboard is a live leaderboard page.
type Leaderboard struct {
	ChallengeID       primitive.ObjectID `json:"challengeId"`
	Entries           []LeaderboardEntry `json:"entries"`
	TotalParticipants int64              `json:"totalParticipants"`
}

type LeaderboardService interface {
	// RefreshChallengeStats rebuilds the cached stats block on a challenge
	// from all of its participations.
	RefreshChallengeStats(ctx context.Context, challengeID primitive.ObjectID) error
	// GetLeaderboard queries participations live; it never reads the cached block.
	GetLeaderboard(ctx context.Context, challengeID primitive.ObjectID, limit int) (*Leaderboard, error)
}

// leaderboardService implements the LeaderboardService interface.
type leaderboardService struct {
	challengeRepo     repository.ChallengeRepository
	participationRepo repository.ParticipationRepository
	cache             cache.Cache
	cacheSize         int
	log               *zap.Logger
	now               Clock
}

// NewLeaderboardService creates a new leaderboard service. cacheSize bounds
// the cached leaderboard stored on each challenge; non-positive means 10.
func NewLeaderboardService(
	challengeRepo repository.ChallengeRepository,
	participationRepo repository.ParticipationRepository,
	c cache.Cache,
	cacheSize int,
	log *zap.Logger,
	now Clock,
) LeaderboardService {
	if c == nil {
		c = cache.Noop{}
	}
	if cacheSize <= 0 {
		cacheSize = DefaultLeaderboardLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &leaderboardService{
		challengeRepo:     challengeRepo,
		participationRepo: participationRepo,
		cache:             c,
		cacheSize:         cacheSize,
		log:               log,
		now:               orSystemClock(now),
	}
}

func (s *leaderboardService) RefreshChallengeStats(ctx context.Context, challengeID primitive.ObjectID) error {
	participations, err := s.participationRepo.ListByChallenge(ctx, challengeID)
	if err != nil {
		return err
	}

	stats := BuildChallengeStats(participations, s.cacheSize)
	updatedAt := s.now()
	stats.UpdatedAt = &updatedAt

	if err := s.challengeRepo.UpdateStats(ctx, challengeID, stats); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChallengeNotFound
		}
		return err
	}

	// Catalogue pages embed the stats block.
	if err := s.cache.DeletePrefix(ctx, challengeListPrefix); err != nil {
		s.log.Warn("challenge cache invalidation failed", zap.Error(err))
	}
	return nil
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, challengeID primitive.ObjectID, limit int) (*Leaderboard, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)

	if _, err := s.challengeRepo.GetByID(ctx, challengeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}

	rows, err := s.participationRepo.Leaderboard(ctx, challengeID, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.participationRepo.CountByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	board := &Leaderboard{
		ChallengeID:       challengeID,
		Entries:           make([]LeaderboardEntry, 0, len(rows)),
		TotalParticipants: total,
	}
	for i := range rows {
		board.Entries = append(board.Entries, LeaderboardEntry{
			Rank:               i + 1,
			LeaderboardSummary: rows[i].Summary(),
		})
	}
	return board, nil
}

// BuildChallengeStats computes the cached stats block for a challenge's
// participations, keeping the top size rows in cache order.
func BuildChallengeStats(participations []domain.Participation, size int) domain.ChallengeStats {
	stats := domain.ChallengeStats{
		TotalParticipants: len(participations),
		CachedLeaderboard: []domain.LeaderboardSummary{},
	}
	if len(participations) == 0 {
		return stats
	}

	sum := 0
	for _, p := range participations {
		sum += p.PercentComplete
	}
	stats.AverageCompletion = int(math.Round(float64(sum) / float64(len(participations))))

	sorted := slices.Clone(participations)
	slices.SortStableFunc(sorted, func(a, b domain.Participation) int {
		return domain.CompareForCache(&a, &b)
	})
	for i := 0; i < len(sorted) && i < size; i++ {
		stats.CachedLeaderboard = append(stats.CachedLeaderboard, sorted[i].Summary())
	}
	return stats
}
