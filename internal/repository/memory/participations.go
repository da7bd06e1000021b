package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type participationKey struct {
	challengeID primitive.ObjectID
	userGymID   string
}

type participationRepository struct {
	mu    sync.RWMutex
	byKey map[participationKey]domain.Participation
}

// NewParticipationRepository creates an empty in-memory participation repository.
func NewParticipationRepository() repository.ParticipationRepository {
	return &participationRepository{byKey: map[participationKey]domain.Participation{}}
}

func copyParticipation(p domain.Participation) domain.Participation {
	p.Progress = slices.Clone(p.Progress)
	p.Metadata = maps.Clone(p.Metadata)
	return p
}

func (r *participationRepository) Create(ctx context.Context, p *domain.Participation) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participationKey{p.ChallengeID, p.UserGymID}
	if _, ok := r.byKey[key]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	p.ID = primitive.NewObjectID()
	r.byKey[key] = copyParticipation(*p)
	return p.ID, nil
}

func (r *participationRepository) Get(ctx context.Context, challengeID primitive.ObjectID, userGymID string) (*domain.Participation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byKey[participationKey{challengeID, userGymID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = copyParticipation(p)
	return &p, nil
}

func (r *participationRepository) UpdateProgress(ctx context.Context, p *domain.Participation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participationKey{p.ChallengeID, p.UserGymID}
	stored, ok := r.byKey[key]
	if !ok || stored.ID != p.ID {
		return repository.ErrNotFound
	}
	if stored.Version != p.Version {
		return repository.ErrVersionConflict
	}

	stored.Progress = slices.Clone(p.Progress)
	stored.CompletedCount = p.CompletedCount
	stored.CurrentStreak = p.CurrentStreak
	stored.LongestStreak = p.LongestStreak
	stored.PercentComplete = p.PercentComplete
	stored.LastActivityAt = p.LastActivityAt
	stored.Version++
	r.byKey[key] = stored
	p.Version = stored.Version
	return nil
}

func (r *participationRepository) Delete(ctx context.Context, challengeID primitive.ObjectID, userGymID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := participationKey{challengeID, userGymID}
	if _, ok := r.byKey[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byKey, key)
	return nil
}

func (r *participationRepository) DeleteByChallenge(ctx context.Context, challengeID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key := range r.byKey {
		if key.challengeID == challengeID {
			delete(r.byKey, key)
			n++
		}
	}
	return n, nil
}

func (r *participationRepository) ListByChallenge(ctx context.Context, challengeID primitive.ObjectID) ([]domain.Participation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Participation
	for key, p := range r.byKey {
		if key.challengeID == challengeID {
			out = append(out, copyParticipation(p))
		}
	}
	slices.SortFunc(out, func(a, b domain.Participation) int { return a.JoinedAt.Compare(b.JoinedAt) })
	return out, nil
}

func (r *participationRepository) Leaderboard(ctx context.Context, challengeID primitive.ObjectID, limit int) ([]domain.Participation, error) {
	rows, err := r.ListByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(rows, func(a, b domain.Participation) int { return domain.CompareLive(&a, &b) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *participationRepository) CountByChallenge(ctx context.Context, challengeID primitive.ObjectID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for key := range r.byKey {
		if key.challengeID == challengeID {
			n++
		}
	}
	return n, nil
}

func (r *participationRepository) ListByUser(ctx context.Context, userGymID string) ([]domain.Participation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Participation
	for key, p := range r.byKey {
		if key.userGymID == userGymID {
			out = append(out, copyParticipation(p))
		}
	}
	slices.SortFunc(out, func(a, b domain.Participation) int { return b.JoinedAt.Compare(a.JoinedAt) })
	return out, nil
}
