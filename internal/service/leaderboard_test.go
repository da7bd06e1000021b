package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ironworks/gym-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func userIDs(entries []LeaderboardEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserGymID
	}
	return ids
}

func TestLeaderboardTieBreaks(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	c := f.createTaskChallenge(t, 5)

	for _, u := range []string{"early", "late", "leader", "idle"} {
		f.join(t, c.ID, u)
	}
	f.clock.Advance(time.Hour)
	f.mark(t, c.ID, "early", 1, 2)
	f.clock.Advance(time.Hour)
	f.mark(t, c.ID, "late", 1, 2)
	f.mark(t, c.ID, "leader", 1, 2, 3)

	board, err := f.leaderboardSvc.GetLeaderboard(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), board.TotalParticipants)
	assert.Equal(t, c.ID, board.ChallengeID)
	// Live order prefers the most recent activity on ties.
	assert.Equal(t, []string{"leader", "late", "early", "idle"}, userIDs(board.Entries))
	for i, e := range board.Entries {
		assert.Equal(t, i+1, e.Rank)
	}

	stored, err := f.challenges.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, stored.CachedLeaderboard, 4)
	// The cached block prefers whoever got there first.
	cached := []string{}
	for _, row := range stored.CachedLeaderboard {
		cached = append(cached, row.UserGymID)
	}
	assert.Equal(t, []string{"leader", "early", "late", "idle"}, cached)
	assert.Equal(t, 4, stored.TotalParticipants)
	assert.Equal(t, 35, stored.AverageCompletion) // (60+40+40+0)/4
}

func TestLeaderboardPageRanksRestart(t *testing.T) {
	f := newChallengeFixture(t)
	c := f.createTaskChallenge(t, 10)
	for i := 0; i < 7; i++ {
		u := fmt.Sprintf("u%d", i)
		f.join(t, c.ID, u)
		days := make([]int, i+1)
		for d := range days {
			days[d] = d + 1
		}
		f.mark(t, c.ID, u, days...)
	}

	board, err := f.leaderboardSvc.GetLeaderboard(context.Background(), c.ID, 3)
	require.NoError(t, err)
	require.Len(t, board.Entries, 3)
	assert.Equal(t, []string{"u6", "u5", "u4"}, userIDs(board.Entries))
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, int64(7), board.TotalParticipants)
}

func TestLeaderboardIsDeterministic(t *testing.T) {
	f := newChallengeFixture(t)
	c := f.createTaskChallenge(t, 3)
	// Same scores and same activity time: only ids separate them.
	for i := 0; i < 6; i++ {
		f.join(t, c.ID, fmt.Sprintf("u%d", i))
	}

	first, err := f.leaderboardSvc.GetLeaderboard(context.Background(), c.ID, 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := f.leaderboardSvc.GetLeaderboard(context.Background(), c.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, userIDs(first.Entries), userIDs(again.Entries))
	}
}

func TestLeaderboardLimitsAndMissingChallenge(t *testing.T) {
	f := newChallengeFixture(t)
	_, err := f.leaderboardSvc.GetLeaderboard(context.Background(), primitive.NewObjectID(), 5)
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	c := f.createTaskChallenge(t, 3)
	board, err := f.leaderboardSvc.GetLeaderboard(context.Background(), c.ID, 1000)
	require.NoError(t, err)
	assert.Empty(t, board.Entries)
	assert.NotNil(t, board.Entries)
	assert.Zero(t, board.TotalParticipants)
}

func TestRefreshChallengeStatsMissing(t *testing.T) {
	f := newChallengeFixture(t)
	err := f.leaderboardSvc.RefreshChallengeStats(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestBuildChallengeStats(t *testing.T) {
	at := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	var rows []domain.Participation
	for i := 0; i < 15; i++ {
		rows = append(rows, domain.Participation{
			ID:              primitive.NewObjectID(),
			UserGymID:       fmt.Sprintf("u%02d", i),
			PercentComplete: i * 5,
			LastActivityAt:  at,
		})
	}

	stats := BuildChallengeStats(rows, 10)
	assert.Equal(t, 15, stats.TotalParticipants)
	assert.Equal(t, 35, stats.AverageCompletion)
	require.Len(t, stats.CachedLeaderboard, 10)
	assert.Equal(t, "u14", stats.CachedLeaderboard[0].UserGymID)
	assert.Equal(t, "u05", stats.CachedLeaderboard[9].UserGymID)
	assert.Equal(t, "u00", rows[0].UserGymID, "input order is left alone")

	empty := BuildChallengeStats(nil, 10)
	assert.Zero(t, empty.AverageCompletion)
	assert.NotNil(t, empty.CachedLeaderboard)
}
