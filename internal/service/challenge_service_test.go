package service

import (
	"context"
	"testing"
	"time"

	"ironworks/gym-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateChallengeValidation(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)

	tests := []struct {
		name string
		in   domain.Challenge
	}{
		{"missing title", domain.Challenge{}},
		{"title is only markup", domain.Challenge{Title: "<br/>"}},
		{"unknown type", domain.Challenge{Title: "x", Type: "marathon"}},
		{"end before start", domain.Challenge{Title: "x", StartDate: &start, EndDate: &before}},
		{"task day zero", domain.Challenge{Title: "x", Tasks: []domain.ChallengeTask{{Day: 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChallengeFixture(t)
			in := tt.in
			_, err := f.challengeSvc.CreateChallenge(context.Background(), &in, "t1")
			assert.ErrorIs(t, err, ErrInvalidChallenge)
			assert.Equal(t, KindInvalidArgument, KindOf(err))
		})
	}
}

func TestCreateChallengeSanitizesAndDefaults(t *testing.T) {
	f := newChallengeFixture(t)
	c, err := f.challengeSvc.CreateChallenge(context.Background(), &domain.Challenge{
		Title:       "<script>alert(1)</script>Plank <i>month</i>",
		Description: `<p onclick="steal()">Hold it</p>`,
		Tags:        []string{" Core ", "<b></b>", "ABS"},
		Tasks:       []domain.ChallengeTask{{Day: 1, Description: "<em>30s</em>"}},
		IsActive:    true,
	}, "trainer-1")
	require.NoError(t, err)

	assert.Equal(t, "Plank month", c.Title)
	assert.Equal(t, "<p>Hold it</p>", c.Description)
	assert.Equal(t, []string{"core", "abs"}, c.Tags)
	assert.Equal(t, "30s", c.Tasks[0].Description)
	assert.Equal(t, domain.ChallengeTypeDaily, c.Type)
	assert.Equal(t, "trainer-1", c.CreatedBy)
	assert.NotNil(t, c.CachedLeaderboard)
	assert.False(t, c.ID.IsZero())
}

func TestUpdateChallengeKeepsStats(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	c := f.createTaskChallenge(t, 5)
	f.join(t, c.ID, "u1")

	updated, err := f.challengeSvc.UpdateChallenge(ctx, c.ID, &domain.Challenge{
		Title: "Renamed", Type: domain.ChallengeTypeTask, Tasks: c.Tasks, IsActive: false,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.False(t, updated.IsActive)

	stored, err := f.challengeSvc.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, 1, stored.TotalParticipants)
	assert.Equal(t, "trainer-1", stored.CreatedBy)

	_, err = f.challengeSvc.UpdateChallenge(ctx, primitive.NewObjectID(), &domain.Challenge{Title: "x"})
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestDeleteChallengeCascades(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	c := f.createTaskChallenge(t, 5)
	other := f.createTaskChallenge(t, 5)
	for _, u := range []string{"u1", "u2", "u3"} {
		f.join(t, c.ID, u)
	}
	f.join(t, other.ID, "u1")

	require.NoError(t, f.challengeSvc.DeleteChallenge(ctx, c.ID))

	n, err := f.participations.CountByChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.participations.CountByChallenge(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.challengeSvc.GetChallenge(ctx, c.ID)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	assert.ErrorIs(t, f.challengeSvc.DeleteChallenge(ctx, c.ID), ErrChallengeNotFound)
}

func TestListChallengesCache(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()
	f.createTaskChallenge(t, 3)
	_, err := f.challengeSvc.CreateChallenge(ctx, &domain.Challenge{Title: "Draft"}, "t1")
	require.NoError(t, err)

	active, err := f.challengeSvc.ListChallenges(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := f.challengeSvc.ListChallenges(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, f.cache.size())

	// Served from cache.
	_, err = f.challengeSvc.ListChallenges(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	// Writes invalidate every page.
	f.createTaskChallenge(t, 2)
	assert.Zero(t, f.cache.size())
	active, err = f.challengeSvc.ListChallenges(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestListChallengesEmpty(t *testing.T) {
	f := newChallengeFixture(t)
	got, err := f.challengeSvc.ListChallenges(context.Background(), false)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
