package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChallengeType determines how a challenge's day count is derived.
type ChallengeType string

const (
	ChallengeTypeStreak ChallengeType = "streak"
	ChallengeTypeDaily  ChallengeType = "daily"
	ChallengeTypeTask   ChallengeType = "task"
)

// DefaultTotalDays is used when a challenge has neither tasks nor a full date range.
const DefaultTotalDays = 30

// Valid reports whether t is a known challenge type.
func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeTypeStreak, ChallengeTypeDaily, ChallengeTypeTask:
		return true
	}
	return false
}

// ChallengeTask is the work expected on one challenge day.
type ChallengeTask struct {
	Day         int    `bson:"day" json:"day"`
	Description string `bson:"description" json:"description"`
}

// LeaderboardSummary is a denormalized participant row stored in a
// challenge's cached leaderboard.
type LeaderboardSummary struct {
	UserGymID       string    `bson:"userGymId" json:"userGymId"`
	UserName        string    `bson:"userName" json:"userName"`
	CompletedCount  int       `bson:"completedCount" json:"completedCount"`
	CurrentStreak   int       `bson:"currentStreak" json:"currentStreak"`
	LongestStreak   int       `bson:"longestStreak" json:"longestStreak"`
	PercentComplete int       `bson:"percentComplete" json:"percentComplete"`
	LastActivityAt  time.Time `bson:"lastActivityAt" json:"lastActivityAt"`
}

// ChallengeStats is the cached summary block written by the stats recompute.
// It is a display-only projection over the challenge's participations.
type ChallengeStats struct {
	TotalParticipants int                  `bson:"totalParticipants" json:"totalParticipants"`
	AverageCompletion int                  `bson:"averageCompletion" json:"averageCompletion"` // 0-100
	CachedLeaderboard []LeaderboardSummary `bson:"cachedLeaderboard" json:"cachedLeaderboard"`
	UpdatedAt         *time.Time           `bson:"statsUpdatedAt,omitempty" json:"statsUpdatedAt,omitempty"`
}

// Challenge is a fitness challenge members can join.
type Challenge struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Type        ChallengeType      `bson:"type" json:"type"`
	StartDate   *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Tasks       []ChallengeTask    `bson:"tasks,omitempty" json:"tasks,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedBy   string             `bson:"createdBy" json:"createdBy"`

	ChallengeStats `bson:",inline"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// TotalDays returns the challenge's day count: the highest task day when
// tasks exist, else the whole days spanned by the date range (rounded up),
// else DefaultTotalDays.
func (c *Challenge) TotalDays() int {
	if len(c.Tasks) > 0 {
		maxDay := 0
		for _, t := range c.Tasks {
			maxDay = max(maxDay, t.Day)
		}
		return maxDay
	}
	if c.StartDate != nil && c.EndDate != nil {
		days := int(math.Ceil(c.EndDate.Sub(*c.StartDate).Hours() / 24))
		return max(days, 1)
	}
	return DefaultTotalDays
}

// HasEnded reports whether the challenge's end date has passed at now.
func (c *Challenge) HasEnded(now time.Time) bool {
	return c.EndDate != nil && now.After(*c.EndDate)
}
