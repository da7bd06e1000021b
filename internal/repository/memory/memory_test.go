package memory_test

import (
	"context"
	"testing"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"
	"ironworks/gym-app/internal/repository/memory"
	"ironworks/gym-app/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAttendanceRepository(t *testing.T) {
	repotest.RunAttendance(t, func(*testing.T) repository.AttendanceRepository {
		return memory.NewAttendanceRepository()
	})
}

func TestChallengeRepository(t *testing.T) {
	repotest.RunChallenges(t, func(*testing.T) repository.ChallengeRepository {
		return memory.NewChallengeRepository()
	})
}

func TestParticipationRepository(t *testing.T) {
	repotest.RunParticipations(t, func(*testing.T) repository.ParticipationRepository {
		return memory.NewParticipationRepository()
	})
}

func TestParticipationCopiesState(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewParticipationRepository()
	cid := primitive.NewObjectID()

	p := &domain.Participation{
		ChallengeID: cid,
		UserGymID:   "u1",
		Progress:    []domain.ProgressEntry{{Day: 1}},
		Metadata:    map[string]interface{}{"team": "red"},
	}
	_, err := repo.Create(ctx, p)
	require.NoError(t, err)

	// Mutating the caller's value must not leak into the store.
	p.Progress[0].Completed = true
	p.Metadata["team"] = "blue"

	got, err := repo.Get(ctx, cid, "u1")
	require.NoError(t, err)
	assert.False(t, got.Progress[0].Completed)
	assert.Equal(t, "red", got.Metadata["team"])

	got.Progress[0].Completed = true
	again, err := repo.Get(ctx, cid, "u1")
	require.NoError(t, err)
	assert.False(t, again.Progress[0].Completed)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	id, err := repo.Create(ctx, &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", Role: domain.RoleMember})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Name: "Other", Email: "ada@example.com", PasswordHash: "hash", Role: domain.RoleMember})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	batch, err := repo.GetByIDs(ctx, []primitive.ObjectID{id, primitive.NewObjectID()})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "Ada", batch[0].Name)
}

func TestExportRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewExportRepository()

	id, err := repo.Create(ctx, &domain.AttendanceExport{Month: "2025-10", S3ObjectKey: "exports/x.csv", RowCount: 3})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "exports/x.csv", got.S3ObjectKey)
	assert.Equal(t, 3, got.RowCount)

	_, err = repo.GetByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
