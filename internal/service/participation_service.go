package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxProgressAttempts bounds the read-modify-write retries of MarkProgress.
const maxProgressAttempts = 3

// JoinOptions are the optional parts of a join.
type JoinOptions struct {
	StartAt  *time.Time // Timestamp for the initial progress entries
	Metadata map[string]interface{}
}

// UserChallenge pairs a challenge with the caller's participation in it.
type UserChallenge struct {
	Challenge     domain.Challenge      `json:"challenge"`
	Participation *domain.Participation `json:"participation"`
}

type ParticipationService interface {
	JoinChallenge(ctx context.Context, challengeID primitive.ObjectID, userID, userName string, opts JoinOptions) (*domain.Participation, error)
	MarkProgress(ctx context.Context, challengeID primitive.ObjectID, userID string, day int, completed bool) (*domain.Participation, error)
	LeaveChallenge(ctx context.Context, challengeID primitive.ObjectID, userID string) error
	GetParticipation(ctx context.Context, challengeID primitive.ObjectID, userID string) (*domain.Participation, error)
	GetUserChallenges(ctx context.Context, userID string) ([]UserChallenge, error)
}

// participationService implements the ParticipationService interface.
type participationService struct {
	challengeRepo     repository.ChallengeRepository
	participationRepo repository.ParticipationRepository
	leaderboard       LeaderboardService
	log               *zap.Logger
	now               Clock
}

// NewParticipationService creates a new participation service. Every
// successful mutation is followed by a stats refresh through leaderboard.
func NewParticipationService(
	challengeRepo repository.ChallengeRepository,
	participationRepo repository.ParticipationRepository,
	leaderboard LeaderboardService,
	log *zap.Logger,
	now Clock,
) ParticipationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &participationService{
		challengeRepo:     challengeRepo,
		participationRepo: participationRepo,
		leaderboard:       leaderboard,
		log:               log,
		now:               orSystemClock(now),
	}
}

func (s *participationService) JoinChallenge(ctx context.Context, challengeID primitive.ObjectID, userID, userName string, opts JoinOptions) (*domain.Participation, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	challenge, err := s.getChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !challenge.IsActive {
		return nil, ErrChallengeInactive
	}
	if challenge.HasEnded(now) {
		return nil, ErrChallengeEnded
	}

	startAt := now
	if opts.StartAt != nil {
		startAt = *opts.StartAt
	}
	totalDays := challenge.TotalDays()

	p := &domain.Participation{
		ChallengeID:    challengeID,
		UserGymID:      userID,
		UserName:       userName,
		Progress:       domain.NewProgress(totalDays, startAt),
		TotalDays:      totalDays,
		Metadata:       opts.Metadata,
		JoinedAt:       now,
		LastActivityAt: now,
	}
	p.Recalculate()

	id, err := s.participationRepo.Create(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}
	p.ID = id

	s.refreshStats(ctx, challengeID)
	return p, nil
}

// MarkProgress sets the completion state of one day and recomputes the
// participation's derived stats. Concurrent writers are detected by the
// version check and the loser re-reads and reapplies.
func (s *participationService) MarkProgress(ctx context.Context, challengeID primitive.ObjectID, userID string, day int, completed bool) (*domain.Participation, error) {
	challenge, err := s.getChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxProgressAttempts; attempt++ {
		p, err := s.getParticipation(ctx, challengeID, userID)
		if err != nil {
			return nil, err
		}

		totalDays := p.TotalDays
		if totalDays <= 0 {
			// Enrollments written before the day count was pinned.
			totalDays = challenge.TotalDays()
		}
		if day < 1 || day > totalDays {
			return nil, fmt.Errorf("%w: day %d not in 1..%d", ErrDayOutOfRange, day, totalDays)
		}

		now := s.now()
		p.SetProgress(day, completed, now)
		p.Recalculate()
		p.LastActivityAt = now

		err = s.participationRepo.UpdateProgress(ctx, p)
		switch {
		case err == nil:
			s.refreshStats(ctx, challengeID)
			return p, nil
		case errors.Is(err, repository.ErrVersionConflict):
			s.log.Debug("progress write lost a race, retrying",
				zap.String("challengeId", challengeID.Hex()),
				zap.String("userId", userID),
				zap.Int("attempt", attempt),
			)
			continue
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrParticipationNotFound
		default:
			return nil, err
		}
	}
	return nil, ErrProgressContention
}

func (s *participationService) LeaveChallenge(ctx context.Context, challengeID primitive.ObjectID, userID string) error {
	if err := s.participationRepo.Delete(ctx, challengeID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParticipationNotFound
		}
		return err
	}
	s.refreshStats(ctx, challengeID)
	return nil
}

func (s *participationService) GetParticipation(ctx context.Context, challengeID primitive.ObjectID, userID string) (*domain.Participation, error) {
	return s.getParticipation(ctx, challengeID, userID)
}

// GetUserChallenges follows the user's participations to their challenges,
// most recently joined first. Participations whose challenge is gone are skipped.
func (s *participationService) GetUserChallenges(ctx context.Context, userID string) ([]UserChallenge, error) {
	participations, err := s.participationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(participations) == 0 {
		return []UserChallenge{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(participations))
	for _, p := range participations {
		ids = append(ids, p.ChallengeID)
	}
	challenges, err := s.challengeRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.Challenge, len(challenges))
	for _, c := range challenges {
		byID[c.ID] = c
	}

	result := make([]UserChallenge, 0, len(participations))
	for i := range participations {
		c, ok := byID[participations[i].ChallengeID]
		if !ok {
			continue
		}
		result = append(result, UserChallenge{Challenge: c, Participation: &participations[i]})
	}
	return result, nil
}

func (s *participationService) getChallenge(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

func (s *participationService) getParticipation(ctx context.Context, challengeID primitive.ObjectID, userID string) (*domain.Participation, error) {
	p, err := s.participationRepo.Get(ctx, challengeID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, err
	}
	return p, nil
}

// refreshStats runs after the primary write has committed, so a failure is
// logged and left for the next scheduler sweep.
func (s *participationService) refreshStats(ctx context.Context, challengeID primitive.ObjectID) {
	if err := s.leaderboard.RefreshChallengeStats(ctx, challengeID); err != nil {
		s.log.Warn("challenge stats refresh failed",
			zap.String("challengeId", challengeID.Hex()),
			zap.Error(err),
		)
	}
}
