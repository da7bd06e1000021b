package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ptr(t time.Time) *time.Time { return &t }

func TestChallengeTotalDays(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		c    Challenge
		want int
	}{
		{"tasks win over dates", Challenge{
			Tasks:     []ChallengeTask{{Day: 3}, {Day: 7}, {Day: 1}},
			StartDate: ptr(start), EndDate: ptr(start.AddDate(0, 0, 40)),
		}, 7},
		{"date span", Challenge{StartDate: ptr(start), EndDate: ptr(start.AddDate(0, 0, 14))}, 14},
		{"partial day rounds up", Challenge{StartDate: ptr(start), EndDate: ptr(start.Add(36 * time.Hour))}, 2},
		{"zero span clamps to one", Challenge{StartDate: ptr(start), EndDate: ptr(start)}, 1},
		{"only start date", Challenge{StartDate: ptr(start)}, DefaultTotalDays},
		{"nothing set", Challenge{}, DefaultTotalDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.TotalDays())
		})
	}
}

func TestChallengeTypeValid(t *testing.T) {
	for _, typ := range []ChallengeType{ChallengeTypeStreak, ChallengeTypeDaily, ChallengeTypeTask} {
		assert.True(t, typ.Valid(), typ)
	}
	assert.Equal(t, ChallengeType("task"), ChallengeTypeTask)
	assert.False(t, ChallengeType("").Valid())
	assert.False(t, ChallengeType("weekly").Valid())

	c := Challenge{Type: ChallengeTypeTask, Tasks: []ChallengeTask{{Day: 1, Description: "plank"}, {Day: 2}}}
	assert.Equal(t, 2, c.TotalDays())
}

func TestChallengeHasEnded(t *testing.T) {
	end := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	c := Challenge{EndDate: &end}
	assert.False(t, c.HasEnded(end))
	assert.True(t, c.HasEnded(end.Add(time.Second)))
	assert.False(t, (&Challenge{}).HasEnded(end))
}

func TestParticipationRecalculate(t *testing.T) {
	at := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	p := Participation{Progress: NewProgress(5, at)}

	p.SetProgress(5, true, at)
	p.SetProgress(4, true, at)
	p.Recalculate()

	assert.Equal(t, 2, p.CompletedCount)
	assert.Equal(t, 40, p.PercentComplete)
	assert.Equal(t, 2, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)
	assert.Len(t, p.Progress, 5)

	p.SetProgress(4, false, at)
	p.Recalculate()
	assert.Equal(t, 1, p.CompletedCount)
	assert.Equal(t, 20, p.PercentComplete)
	assert.Equal(t, 1, p.CurrentStreak)
}

func TestParticipationRecalculateEmpty(t *testing.T) {
	var p Participation
	p.Recalculate()
	assert.Zero(t, p.PercentComplete)
	assert.Zero(t, p.CompletedCount)
}

func TestSetProgressAppendsInOrder(t *testing.T) {
	at := time.Now()
	p := Participation{Progress: []ProgressEntry{{Day: 1}, {Day: 3}}}
	p.SetProgress(2, true, at)
	assert.Equal(t, []int{1, 2, 3}, []int{p.Progress[0].Day, p.Progress[1].Day, p.Progress[2].Day})
}

func TestLeaderboardComparators(t *testing.T) {
	early := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	a := &Participation{ID: primitive.NewObjectID(), PercentComplete: 50, CompletedCount: 5, LongestStreak: 3, LastActivityAt: early}
	b := &Participation{ID: primitive.NewObjectID(), PercentComplete: 50, CompletedCount: 5, LongestStreak: 3, LastActivityAt: late}
	c := &Participation{ID: primitive.NewObjectID(), PercentComplete: 60}

	// Higher completion always ranks first.
	assert.Negative(t, CompareForCache(c, a))
	assert.Negative(t, CompareLive(c, a))

	// Ties on scores split by activity time in opposite directions.
	assert.Negative(t, CompareForCache(a, b))
	assert.Positive(t, CompareLive(a, b))

	// Full ties fall back to id order.
	d := *a
	d.ID = primitive.NewObjectID()
	assert.Negative(t, CompareForCache(a, &d))
	assert.Negative(t, CompareLive(a, &d))
}
