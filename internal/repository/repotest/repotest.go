// Package repotest holds behavior checks shared by every repository
// implementation. Each Run function takes a factory that returns an empty
// store, so the memory and MongoDB backends are held to the same rules.
package repotest

import (
	"context"
	"testing"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// day returns midnight UTC of the given October 2025 day; Mongo keeps
// millisecond precision so whole days round-trip exactly.
func day(d int) time.Time {
	return time.Date(2025, 10, d, 0, 0, 0, 0, time.UTC)
}

func RunAttendance(t *testing.T, newRepo func(t *testing.T) repository.AttendanceRepository) {
	ctx := context.Background()

	t.Run("one record per user and day", func(t *testing.T) {
		repo := newRepo(t)
		id, err := repo.Create(ctx, &domain.AttendanceRecord{UserID: "u1", Date: day(1), CheckInTime: day(1).Add(9 * time.Hour)})
		require.NoError(t, err)
		assert.False(t, id.IsZero())

		_, err = repo.Create(ctx, &domain.AttendanceRecord{UserID: "u1", Date: day(1), CheckInTime: day(1).Add(18 * time.Hour)})
		assert.ErrorIs(t, err, repository.ErrDuplicate)

		_, err = repo.Create(ctx, &domain.AttendanceRecord{UserID: "u2", Date: day(1)})
		assert.NoError(t, err)
		_, err = repo.Create(ctx, &domain.AttendanceRecord{UserID: "u1", Date: day(2)})
		assert.NoError(t, err)
	})

	t.Run("get and delete", func(t *testing.T) {
		repo := newRepo(t)
		id, err := repo.Create(ctx, &domain.AttendanceRecord{UserID: "u1", Date: day(3), IsManual: true, RecordedBy: "t1", Notes: "late"})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)
		assert.True(t, got.Date.Equal(day(3)))
		assert.True(t, got.IsManual)
		assert.Equal(t, "t1", got.RecordedBy)
		assert.Equal(t, "late", got.Notes)

		require.NoError(t, repo.Delete(ctx, id))
		_, err = repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, id), repository.ErrNotFound)

		// The day is free again.
		_, err = repo.Create(ctx, &domain.AttendanceRecord{UserID: "u1", Date: day(3)})
		assert.NoError(t, err)
	})

	t.Run("list by user is ordered and half open", func(t *testing.T) {
		repo := newRepo(t)
		for _, d := range []int{5, 1, 3, 2} {
			_, err := repo.Create(ctx, &domain.AttendanceRecord{UserID: "u1", Date: day(d)})
			require.NoError(t, err)
		}
		_, err := repo.Create(ctx, &domain.AttendanceRecord{UserID: "u2", Date: day(2)})
		require.NoError(t, err)

		all, err := repo.ListByUser(ctx, "u1", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{day(1), day(2), day(3), day(5)}, dates(all))

		from, to := day(2), day(5)
		bounded, err := repo.ListByUser(ctx, "u1", &from, &to)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{day(2), day(3)}, dates(bounded))

		none, err := repo.ListByUser(ctx, "nobody", nil, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("list between orders by date then user", func(t *testing.T) {
		repo := newRepo(t)
		for _, rec := range []domain.AttendanceRecord{
			{UserID: "b", Date: day(2)},
			{UserID: "a", Date: day(2)},
			{UserID: "c", Date: day(1)},
			{UserID: "a", Date: day(9)},
		} {
			_, err := repo.Create(ctx, &rec)
			require.NoError(t, err)
		}

		rows, err := repo.ListBetween(ctx, day(1), day(9))
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "c", rows[0].UserID)
		assert.Equal(t, "a", rows[1].UserID)
		assert.Equal(t, "b", rows[2].UserID)
	})
}

func dates(records []domain.AttendanceRecord) []time.Time {
	out := make([]time.Time, len(records))
	for i, r := range records {
		out[i] = r.Date.UTC()
	}
	return out
}

func RunChallenges(t *testing.T, newRepo func(t *testing.T) repository.ChallengeRepository) {
	ctx := context.Background()

	t.Run("create get list", func(t *testing.T) {
		repo := newRepo(t)
		open := &domain.Challenge{Title: "Open", Type: domain.ChallengeTypeDaily, IsActive: true, Tags: []string{"cardio"}}
		_, err := repo.Create(ctx, open)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct createdAt for ordering
		closed := &domain.Challenge{Title: "Closed", Type: domain.ChallengeTypeDaily}
		_, err = repo.Create(ctx, closed)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, open.ID)
		require.NoError(t, err)
		assert.Equal(t, "Open", got.Title)
		assert.Equal(t, []string{"cardio"}, got.Tags)

		active, err := repo.List(ctx, true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, open.ID, active[0].ID)

		all, err := repo.List(ctx, false)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, closed.ID, all[0].ID, "newest first")

		some, err := repo.GetByIDs(ctx, []primitive.ObjectID{closed.ID, primitive.NewObjectID()})
		require.NoError(t, err)
		require.Len(t, some, 1)
		assert.Equal(t, closed.ID, some[0].ID)

		_, err = repo.GetByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update and stats write disjoint fields", func(t *testing.T) {
		repo := newRepo(t)
		c := &domain.Challenge{Title: "Plank", Type: domain.ChallengeTypeTask, IsActive: true,
			Tasks: []domain.ChallengeTask{{Day: 1, Description: "30s"}}}
		_, err := repo.Create(ctx, c)
		require.NoError(t, err)

		statsAt := day(4)
		require.NoError(t, repo.UpdateStats(ctx, c.ID, domain.ChallengeStats{
			TotalParticipants: 2,
			AverageCompletion: 50,
			CachedLeaderboard: []domain.LeaderboardSummary{{UserGymID: "u1", PercentComplete: 100}},
			UpdatedAt:         &statsAt,
		}))

		c.Title = "Plank harder"
		c.TotalParticipants = 99 // ignored by Update
		require.NoError(t, repo.Update(ctx, c))

		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Plank harder", got.Title)
		assert.Equal(t, 2, got.TotalParticipants)
		assert.Equal(t, 50, got.AverageCompletion)
		require.Len(t, got.CachedLeaderboard, 1)
		assert.Equal(t, "u1", got.CachedLeaderboard[0].UserGymID)
		require.NotNil(t, got.ChallengeStats.UpdatedAt)
		assert.True(t, got.ChallengeStats.UpdatedAt.Equal(statsAt))

		missing := &domain.Challenge{ID: primitive.NewObjectID(), Title: "x"}
		assert.ErrorIs(t, repo.Update(ctx, missing), repository.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateStats(ctx, missing.ID, domain.ChallengeStats{}), repository.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		c := &domain.Challenge{Title: "Gone", Type: domain.ChallengeTypeDaily}
		_, err := repo.Create(ctx, c)
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, c.ID))
		assert.ErrorIs(t, repo.Delete(ctx, c.ID), repository.ErrNotFound)
	})
}

func RunParticipations(t *testing.T, newRepo func(t *testing.T) repository.ParticipationRepository) {
	ctx := context.Background()
	joined := day(1)

	newParticipation := func(challengeID primitive.ObjectID, user string) *domain.Participation {
		return &domain.Participation{
			ChallengeID: challengeID,
			UserGymID:   user,
			UserName:    "Name " + user,
			Progress:    domain.NewProgress(3, joined),
			TotalDays:   3,
			JoinedAt:    joined,
		}
	}

	t.Run("join once", func(t *testing.T) {
		repo := newRepo(t)
		cid := primitive.NewObjectID()
		_, err := repo.Create(ctx, newParticipation(cid, "u1"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, newParticipation(cid, "u1"))
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		_, err = repo.Create(ctx, newParticipation(primitive.NewObjectID(), "u1"))
		assert.NoError(t, err)
	})

	t.Run("update progress is compare and swap", func(t *testing.T) {
		repo := newRepo(t)
		cid := primitive.NewObjectID()
		_, err := repo.Create(ctx, newParticipation(cid, "u1"))
		require.NoError(t, err)

		first, err := repo.Get(ctx, cid, "u1")
		require.NoError(t, err)
		second, err := repo.Get(ctx, cid, "u1")
		require.NoError(t, err)

		first.SetProgress(1, true, day(2))
		first.Recalculate()
		require.NoError(t, repo.UpdateProgress(ctx, first))
		assert.Equal(t, int64(1), first.Version)

		second.SetProgress(2, true, day(2))
		second.Recalculate()
		assert.ErrorIs(t, repo.UpdateProgress(ctx, second), repository.ErrVersionConflict)

		stored, err := repo.Get(ctx, cid, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
		assert.Equal(t, 1, stored.CompletedCount)
		assert.True(t, stored.Progress[0].Completed)
		assert.False(t, stored.Progress[1].Completed)

		require.NoError(t, repo.Delete(ctx, cid, "u1"))
		assert.ErrorIs(t, repo.UpdateProgress(ctx, stored), repository.ErrNotFound)
		_, err = repo.Get(ctx, cid, "u1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, cid, "u1"), repository.ErrNotFound)
	})

	t.Run("leaderboard count and cascade", func(t *testing.T) {
		repo := newRepo(t)
		cid := primitive.NewObjectID()
		other := primitive.NewObjectID()
		for i, user := range []string{"low", "high", "mid"} {
			p := newParticipation(cid, user)
			p.JoinedAt = joined.Add(time.Duration(i) * time.Hour)
			for d := 1; d <= map[string]int{"low": 0, "high": 3, "mid": 1}[user]; d++ {
				p.SetProgress(d, true, day(2))
			}
			p.Recalculate()
			_, err := repo.Create(ctx, p)
			require.NoError(t, err)
		}
		_, err := repo.Create(ctx, newParticipation(other, "high"))
		require.NoError(t, err)

		top, err := repo.Leaderboard(ctx, cid, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "high", top[0].UserGymID)
		assert.Equal(t, "mid", top[1].UserGymID)

		n, err := repo.CountByChallenge(ctx, cid)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		byJoin, err := repo.ListByChallenge(ctx, cid)
		require.NoError(t, err)
		require.Len(t, byJoin, 3)
		assert.Equal(t, "low", byJoin[0].UserGymID)

		mine, err := repo.ListByUser(ctx, "high")
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		deleted, err := repo.DeleteByChallenge(ctx, cid)
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
		n, err = repo.CountByChallenge(ctx, cid)
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = repo.CountByChallenge(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
