package domain

import (
	"bytes"
	"cmp"
	"math"
	"sort"
	"time"

	"ironworks/gym-app/internal/streak"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressEntry is the completion state of one challenge day.
type ProgressEntry struct {
	Day       int       `bson:"day" json:"day"`
	Completed bool      `bson:"completed" json:"completed"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Participation is one user's enrollment in one challenge. Exactly one
// document per (ChallengeID, UserGymID).
type Participation struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChallengeID primitive.ObjectID `bson:"challengeId" json:"challengeId"`
	UserGymID   string             `bson:"userGymId" json:"userGymId"`
	UserName    string             `bson:"userName" json:"userName"` // Denormalized at join time

	Progress  []ProgressEntry `bson:"progress" json:"progress"`   // Ordered by day
	TotalDays int             `bson:"totalDays" json:"totalDays"` // Pinned at join time

	// Derived from Progress by Recalculate, always written together.
	CompletedCount  int `bson:"completedCount" json:"completedCount"`
	CurrentStreak   int `bson:"currentStreak" json:"currentStreak"`
	LongestStreak   int `bson:"longestStreak" json:"longestStreak"`
	PercentComplete int `bson:"percentComplete" json:"percentComplete"`

	Metadata       map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	JoinedAt       time.Time              `bson:"joinedAt" json:"joinedAt"`
	LastActivityAt time.Time              `bson:"lastActivityAt" json:"lastActivityAt"`

	// Version is bumped on every progress write and guards concurrent updates.
	Version int64 `bson:"version" json:"-"`
}

// NewProgress returns totalDays incomplete entries for days 1..totalDays.
func NewProgress(totalDays int, at time.Time) []ProgressEntry {
	progress := make([]ProgressEntry, totalDays)
	for i := range progress {
		progress[i] = ProgressEntry{Day: i + 1, UpdatedAt: at}
	}
	return progress
}

// SetProgress overwrites the entry for day, appending it when missing.
func (p *Participation) SetProgress(day int, completed bool, at time.Time) {
	for i := range p.Progress {
		if p.Progress[i].Day == day {
			p.Progress[i].Completed = completed
			p.Progress[i].UpdatedAt = at
			return
		}
	}
	p.Progress = append(p.Progress, ProgressEntry{Day: day, Completed: completed, UpdatedAt: at})
	sort.SliceStable(p.Progress, func(i, j int) bool { return p.Progress[i].Day < p.Progress[j].Day })
}

// Recalculate refreshes the derived counters from Progress.
func (p *Participation) Recalculate() {
	var done []int
	for _, e := range p.Progress {
		if e.Completed {
			done = append(done, e.Day)
		}
	}

	p.CompletedCount = len(done)
	p.PercentComplete = 0
	if len(p.Progress) > 0 {
		p.PercentComplete = int(math.Round(float64(len(done)) / float64(len(p.Progress)) * 100))
	}

	s := streak.ChallengeDays(done)
	p.CurrentStreak = s.Current
	p.LongestStreak = s.Longest
}

// Summary returns the denormalized leaderboard row for p.
func (p *Participation) Summary() LeaderboardSummary {
	return LeaderboardSummary{
		UserGymID:       p.UserGymID,
		UserName:        p.UserName,
		CompletedCount:  p.CompletedCount,
		CurrentStreak:   p.CurrentStreak,
		LongestStreak:   p.LongestStreak,
		PercentComplete: p.PercentComplete,
		LastActivityAt:  p.LastActivityAt,
	}
}

// compareScores orders by percentComplete, completedCount and longestStreak,
// all descending.
func compareScores(a, b *Participation) int {
	if c := cmp.Compare(b.PercentComplete, a.PercentComplete); c != 0 {
		return c
	}
	if c := cmp.Compare(b.CompletedCount, a.CompletedCount); c != 0 {
		return c
	}
	return cmp.Compare(b.LongestStreak, a.LongestStreak)
}

// CompareForCache is the cached-leaderboard order: scores descending, then
// earlier lastActivityAt first, then id ascending.
func CompareForCache(a, b *Participation) int {
	if c := compareScores(a, b); c != 0 {
		return c
	}
	if c := a.LastActivityAt.Compare(b.LastActivityAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// CompareLive is the live leaderboard order: scores descending, then later
// lastActivityAt first, then id ascending.
func CompareLive(a, b *Participation) int {
	if c := compareScores(a, b); c != 0 {
		return c
	}
	if c := b.LastActivityAt.Compare(a.LastActivityAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}
