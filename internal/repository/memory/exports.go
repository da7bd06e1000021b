package memory

import (
	"context"
	"sync"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type exportRepository struct {
	mu      sync.RWMutex
	exports map[primitive.ObjectID]domain.AttendanceExport
}

// NewExportRepository creates an empty in-memory export metadata repository.
func NewExportRepository() repository.ExportRepository {
	return &exportRepository{exports: map[primitive.ObjectID]domain.AttendanceExport{}}
}

func (r *exportRepository) Create(ctx context.Context, export *domain.AttendanceExport) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	export.ID = primitive.NewObjectID()
	export.CreatedAt = time.Now().UTC()
	r.exports[export.ID] = *export
	return export.ID, nil
}

func (r *exportRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AttendanceExport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}
