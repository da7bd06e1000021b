package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type attendanceRepository struct {
	mu      sync.RWMutex
	records map[primitive.ObjectID]domain.AttendanceRecord
}

// NewAttendanceRepository creates an empty in-memory attendance repository.
func NewAttendanceRepository() repository.AttendanceRepository {
	return &attendanceRepository{records: map[primitive.ObjectID]domain.AttendanceRecord{}}
}

func (r *attendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Mirrors the unique (userId, date) index.
	for _, existing := range r.records {
		if existing.UserID == record.UserID && existing.Date.Equal(record.Date) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}

	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now().UTC()
	r.records[record.ID] = *record
	return record.ID, nil
}

func (r *attendanceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (r *attendanceRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *attendanceRepository) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]domain.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.AttendanceRecord
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		if from != nil && rec.Date.Before(*from) {
			continue
		}
		if to != nil && !rec.Date.Before(*to) {
			continue
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b domain.AttendanceRecord) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (r *attendanceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.AttendanceRecord
	for _, rec := range r.records {
		if rec.Date.Before(from) || !rec.Date.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b domain.AttendanceRecord) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}
