// Package streak computes consecutive-run statistics.
//
// Two calculators live here and are intentionally kept apart: Calendar works
// on real calendar days, ChallengeDays works on 1..N challenge-day indices.
package streak

import (
	"sort"
	"time"
)

// Result holds the two streak figures reported to clients.
type Result struct {
	Current int `json:"currentStreak"`
	Longest int `json:"longestStreak"`
}

// Day truncates t to midnight of its calendar day in loc and returns that day
// as a UTC midnight label, so values from different time zones compare equal
// when they name the same calendar day.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Calendar computes streaks over calendar days. Both the dates and today are
// expected to already be day labels (see Day); duplicate days are collapsed.
//
// The current streak only counts when today itself is present: the walk starts
// at today and moves back one day at a time until a day is missing.
func Calendar(dates []time.Time, today time.Time) Result {
	if len(dates) == 0 {
		return Result{}
	}

	seen := make(map[int64]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		d = d.UTC()
		if _, ok := seen[d.Unix()]; ok {
			continue
		}
		seen[d.Unix()] = struct{}{}
		days = append(days, d)
	}

	current := 0
	for cursor := today.UTC(); ; cursor = cursor.AddDate(0, 0, -1) {
		if _, ok := seen[cursor.Unix()]; !ok {
			break
		}
		current++
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	longest, run := 0, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			run++
			continue
		}
		longest = max(longest, run)
		run = 1
	}
	longest = max(longest, run)

	return Result{Current: current, Longest: longest}
}

// ChallengeDays computes streaks over completed challenge-day numbers.
//
// Days are ordered from the highest down. The current streak is the run that
// starts at the highest completed day; the longest streak is the longest run
// anywhere in the sequence. Adjacency is "day == previous day - 1".
func ChallengeDays(days []int) Result {
	if len(days) == 0 {
		return Result{}
	}

	sorted := make([]int, 0, len(days))
	seen := make(map[int]struct{}, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		sorted = append(sorted, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	current := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]-1 {
			break
		}
		current++
	}

	longest, run := 0, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]-1 {
			run++
			continue
		}
		longest = max(longest, run)
		run = 1
	}
	longest = max(longest, run)

	return Result{Current: current, Longest: longest}
}
