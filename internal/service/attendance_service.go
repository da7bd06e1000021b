package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"
	"ironworks/gym-app/internal/sanitize"
	"ironworks/gym-app/internal/streak"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// CheckInOptions are the optional parts of a check-in.
type CheckInOptions struct {
	Date       *time.Time // Day to record; defaults to today
	IsManual   bool       // Entered by staff on behalf of the member
	RecordedBy string     // Staff user id for manual entries
	Notes      string
}

// AttendanceStats is the per-member attendance summary.
type AttendanceStats struct {
	Month          string   `json:"month"`
	CheckedInDates []string `json:"checkedInDates"` // YYYY-MM-DD within Month
	CurrentStreak  int      `json:"currentStreak"`
	LongestStreak  int      `json:"longestStreak"`
	MonthlyCount   int      `json:"monthlyCount"`
}

type AttendanceService interface {
	CheckIn(ctx context.Context, userID string, opts CheckInOptions) (*domain.AttendanceRecord, error)
	GetAttendanceStats(ctx context.Context, userID, month string) (*AttendanceStats, error)
	ListAttendance(ctx context.Context, userID string, from, to *time.Time) ([]domain.AttendanceRecord, error)
	DeleteAttendance(ctx context.Context, id primitive.ObjectID) error
}

// attendanceService implements the AttendanceService interface.
type attendanceService struct {
	attendanceRepo repository.AttendanceRepository
	loc            *time.Location
	now            Clock
}

// NewAttendanceService creates a new attendance service. Check-in instants
// are mapped to calendar days in loc.
func NewAttendanceService(attendanceRepo repository.AttendanceRepository, loc *time.Location, now Clock) AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceService{
		attendanceRepo: attendanceRepo,
		loc:            loc,
		now:            orSystemClock(now),
	}
}

// CheckIn records one visit for userID. A second check-in for the same day
// fails with ErrAlreadyCheckedIn.
func (s *attendanceService) CheckIn(ctx context.Context, userID string, opts CheckInOptions) (*domain.AttendanceRecord, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	now := s.now()
	today := streak.Day(now, s.loc)
	day := today
	if opts.Date != nil {
		day = streak.Day(*opts.Date, s.loc)
		if day.After(today) {
			return nil, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, day.Format(dayLayout))
		}
	}

	record := &domain.AttendanceRecord{
		UserID:      userID,
		Date:        day,
		CheckInTime: now,
		IsManual:    opts.IsManual,
		Notes:       sanitize.Text(opts.Notes),
	}
	if opts.IsManual {
		record.RecordedBy = opts.RecordedBy
	}

	id, err := s.attendanceRepo.Create(ctx, record)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}
	record.ID = id
	return record, nil
}

// GetAttendanceStats reports the check-ins of month (YYYY-MM, default the
// current month) together with streaks computed live over every record.
func (s *attendanceService) GetAttendanceStats(ctx context.Context, userID, month string) (*AttendanceStats, error) {
	today := streak.Day(s.now(), s.loc)

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	if month != "" {
		parsed, err := parseMonth(month)
		if err != nil {
			return nil, err
		}
		monthStart = parsed
	}
	monthEnd := monthStart.AddDate(0, 1, 0)

	records, err := s.attendanceRepo.ListByUser(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}

	stats := &AttendanceStats{
		Month:          monthStart.Format(monthLayout),
		CheckedInDates: []string{},
	}
	dates := make([]time.Time, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.Date)
		if !r.Date.Before(monthStart) && r.Date.Before(monthEnd) {
			stats.CheckedInDates = append(stats.CheckedInDates, r.Date.Format(dayLayout))
		}
	}
	stats.MonthlyCount = len(stats.CheckedInDates)

	result := streak.Calendar(dates, today)
	stats.CurrentStreak = result.Current
	stats.LongestStreak = result.Longest
	return stats, nil
}

// ListAttendance returns a member's records with from <= date < to.
func (s *attendanceService) ListAttendance(ctx context.Context, userID string, from, to *time.Time) ([]domain.AttendanceRecord, error) {
	var fromDay, toDay *time.Time
	if from != nil {
		d := streak.Day(*from, s.loc)
		fromDay = &d
	}
	if to != nil {
		d := streak.Day(*to, s.loc)
		toDay = &d
	}
	if fromDay != nil && toDay != nil && toDay.Before(*fromDay) {
		return nil, ErrInvalidRange
	}

	records, err := s.attendanceRepo.ListByUser(ctx, userID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.AttendanceRecord{}
	}
	return records, nil
}

// DeleteAttendance removes a record. Role checks happen at the API layer.
func (s *attendanceService) DeleteAttendance(ctx context.Context, id primitive.ObjectID) error {
	if err := s.attendanceRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAttendanceNotFound
		}
		return err
	}
	return nil
}

// parseMonth accepts exactly YYYY-MM and returns the first day of that month.
func parseMonth(month string) (time.Time, error) {
	if len(month) != len(monthLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return t, nil
}
