package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ironworks/gym-app/internal/cache"
	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"
	"ironworks/gym-app/internal/sanitize"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// challengeListPrefix namespaces cached catalogue pages.
const challengeListPrefix = "challenges:list:"

type ChallengeService interface {
	CreateChallenge(ctx context.Context, challenge *domain.Challenge, createdBy string) (*domain.Challenge, error)
	UpdateChallenge(ctx context.Context, id primitive.ObjectID, challenge *domain.Challenge) (*domain.Challenge, error)
	// DeleteChallenge removes the challenge and every participation in it.
	DeleteChallenge(ctx context.Context, id primitive.ObjectID) error
	GetChallenge(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error)
	ListChallenges(ctx context.Context, activeOnly bool) ([]domain.Challenge, error)
}

// challengeService implements the ChallengeService interface.
type challengeService struct {
	challengeRepo     repository.ChallengeRepository
	participationRepo repository.ParticipationRepository
	cache             cache.Cache
	log               *zap.Logger
	now               Clock
}

// NewChallengeService creates a new challenge service. A nil cache disables
// catalogue caching.
func NewChallengeService(
	challengeRepo repository.ChallengeRepository,
	participationRepo repository.ParticipationRepository,
	c cache.Cache,
	log *zap.Logger,
	now Clock,
) ChallengeService {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &challengeService{
		challengeRepo:     challengeRepo,
		participationRepo: participationRepo,
		cache:             c,
		log:               log,
		now:               orSystemClock(now),
	}
}

func (s *challengeService) CreateChallenge(ctx context.Context, challenge *domain.Challenge, createdBy string) (*domain.Challenge, error) {
	if err := normalizeChallenge(challenge); err != nil {
		return nil, err
	}

	now := s.now()
	challenge.ID = primitive.NilObjectID
	challenge.CreatedBy = createdBy
	challenge.ChallengeStats = domain.ChallengeStats{CachedLeaderboard: []domain.LeaderboardSummary{}}
	challenge.CreatedAt = now
	challenge.UpdatedAt = now

	id, err := s.challengeRepo.Create(ctx, challenge)
	if err != nil {
		return nil, err
	}
	challenge.ID = id

	s.invalidateCatalogue(ctx)
	return challenge, nil
}

// UpdateChallenge replaces the editable fields of an existing challenge.
// Existing participations keep the day count they were pinned to at join.
func (s *challengeService) UpdateChallenge(ctx context.Context, id primitive.ObjectID, challenge *domain.Challenge) (*domain.Challenge, error) {
	if err := normalizeChallenge(challenge); err != nil {
		return nil, err
	}

	existing, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}

	existing.Title = challenge.Title
	existing.Description = challenge.Description
	existing.Type = challenge.Type
	existing.StartDate = challenge.StartDate
	existing.EndDate = challenge.EndDate
	existing.Tasks = challenge.Tasks
	existing.Tags = challenge.Tags
	existing.IsActive = challenge.IsActive
	existing.UpdatedAt = s.now()

	if err := s.challengeRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}

	s.invalidateCatalogue(ctx)
	return existing, nil
}

func (s *challengeService) DeleteChallenge(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.challengeRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChallengeNotFound
		}
		return err
	}

	// Children first: a crash between the two deletes leaves an empty
	// challenge rather than orphaned participations.
	removed, err := s.participationRepo.DeleteByChallenge(ctx, id)
	if err != nil {
		return err
	}
	if err := s.challengeRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChallengeNotFound
		}
		return err
	}

	s.log.Info("challenge deleted",
		zap.String("challengeId", id.Hex()),
		zap.Int64("participationsRemoved", removed),
	)
	s.invalidateCatalogue(ctx)
	return nil
}

func (s *challengeService) GetChallenge(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

// ListChallenges serves the catalogue from cache when possible. Cache
// failures fall through to the repository.
func (s *challengeService) ListChallenges(ctx context.Context, activeOnly bool) ([]domain.Challenge, error) {
	key := challengeListKey(activeOnly)

	var cached []domain.Challenge
	found, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.Warn("challenge cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		return cached, nil
	}

	challenges, err := s.challengeRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	if challenges == nil {
		challenges = []domain.Challenge{}
	}

	if err := s.cache.SetJSON(ctx, key, challenges); err != nil {
		s.log.Warn("challenge cache write failed", zap.String("key", key), zap.Error(err))
	}
	return challenges, nil
}

func (s *challengeService) invalidateCatalogue(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, challengeListPrefix); err != nil {
		s.log.Warn("challenge cache invalidation failed", zap.Error(err))
	}
}

func challengeListKey(activeOnly bool) string {
	if activeOnly {
		return challengeListPrefix + "active"
	}
	return challengeListPrefix + "all"
}

// normalizeChallenge sanitizes user-supplied text and validates the fields
// that drive the day count.
func normalizeChallenge(c *domain.Challenge) error {
	if c == nil {
		return fmt.Errorf("%w: body is required", ErrInvalidChallenge)
	}

	c.Title = sanitize.Text(c.Title)
	c.Description = sanitize.RichText(c.Description)
	if c.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidChallenge)
	}
	if c.Type == "" {
		c.Type = domain.ChallengeTypeDaily
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidChallenge, c.Type)
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return fmt.Errorf("%w: endDate is before startDate", ErrInvalidChallenge)
	}

	for i := range c.Tasks {
		if c.Tasks[i].Day < 1 {
			return fmt.Errorf("%w: task day must be at least 1", ErrInvalidChallenge)
		}
		c.Tasks[i].Description = sanitize.Text(c.Tasks[i].Description)
	}

	tags := c.Tags[:0]
	for _, tag := range c.Tags {
		if tag = strings.ToLower(sanitize.Text(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	c.Tags = tags
	return nil
}
