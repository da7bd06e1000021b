package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type challengeRepository struct {
	mu         sync.RWMutex
	challenges map[primitive.ObjectID]domain.Challenge
}

// NewChallengeRepository creates an empty in-memory challenge repository.
func NewChallengeRepository() repository.ChallengeRepository {
	return &challengeRepository{challenges: map[primitive.ObjectID]domain.Challenge{}}
}

func copyChallenge(c domain.Challenge) domain.Challenge {
	c.Tasks = slices.Clone(c.Tasks)
	c.Tags = slices.Clone(c.Tags)
	c.CachedLeaderboard = slices.Clone(c.CachedLeaderboard)
	return c
}

func (r *challengeRepository) Create(ctx context.Context, challenge *domain.Challenge) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	challenge.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	challenge.CreatedAt = now
	challenge.UpdatedAt = now
	r.challenges[challenge.ID] = copyChallenge(*challenge)
	return challenge.ID, nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = copyChallenge(c)
	return &c, nil
}

func (r *challengeRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Challenge
	for _, id := range ids {
		if c, ok := r.challenges[id]; ok {
			out = append(out, copyChallenge(c))
		}
	}
	return out, nil
}

func (r *challengeRepository) List(ctx context.Context, activeOnly bool) ([]domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Challenge
	for _, c := range r.challenges {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, copyChallenge(c))
	}
	// Newest first, like the mongo implementation.
	slices.SortFunc(out, func(a, b domain.Challenge) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r *challengeRepository) Update(ctx context.Context, challenge *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.challenges[challenge.ID]
	if !ok {
		return repository.ErrNotFound
	}

	updated := copyChallenge(*challenge)
	updated.ChallengeStats = existing.ChallengeStats
	updated.CreatedAt = existing.CreatedAt
	updated.CreatedBy = existing.CreatedBy
	updated.UpdatedAt = time.Now().UTC()
	r.challenges[challenge.ID] = updated
	challenge.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *challengeRepository) UpdateStats(ctx context.Context, id primitive.ObjectID, stats domain.ChallengeStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return repository.ErrNotFound
	}
	stats.CachedLeaderboard = slices.Clone(stats.CachedLeaderboard)
	c.ChallengeStats = stats
	r.challenges[id] = c
	return nil
}

func (r *challengeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.challenges[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.challenges, id)
	return nil
}
