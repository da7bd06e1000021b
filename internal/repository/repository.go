package repository

import (
	"context"
	"time"

	"ironworks/gym-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound        = RepositoryError("not found")
	ErrDuplicate       = RepositoryError("duplicate key")
	ErrVersionConflict = RepositoryError("version conflict")
	ErrUpdateFailed    = RepositoryError("update failed")
	ErrDeleteFailed    = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) // ErrDuplicate on email clash
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// GetByIDs returns the users that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
}

// AttendanceRepository defines the interface for check-in records.
type AttendanceRepository interface {
	// Create returns ErrDuplicate when the user already has a record for that date.
	Create(ctx context.Context, record *domain.AttendanceRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AttendanceRecord, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ListByUser returns the user's records ordered by date. Nil bounds are open.
	ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]domain.AttendanceRecord, error)
	// ListBetween returns all records with from <= date < to, ordered by date then user.
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.AttendanceRecord, error)
}

// ChallengeRepository defines the interface for challenge documents.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *domain.Challenge) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Challenge, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Challenge, error)
	// Update writes the editable fields; cached stats are left untouched.
	Update(ctx context.Context, challenge *domain.Challenge) error
	UpdateStats(ctx context.Context, id primitive.ObjectID, stats domain.ChallengeStats) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ParticipationRepository defines the interface for challenge enrollments.
type ParticipationRepository interface {
	// Create returns ErrDuplicate when the user already joined the challenge.
	Create(ctx context.Context, p *domain.Participation) (primitive.ObjectID, error)
	Get(ctx context.Context, challengeID primitive.ObjectID, userGymID string) (*domain.Participation, error)
	// UpdateProgress writes progress and derived stats only if the stored
	// version still equals p.Version, and bumps p.Version on success.
	// It returns ErrVersionConflict when another write got there first.
	UpdateProgress(ctx context.Context, p *domain.Participation) error
	Delete(ctx context.Context, challengeID primitive.ObjectID, userGymID string) error
	DeleteByChallenge(ctx context.Context, challengeID primitive.ObjectID) (int64, error)
	ListByChallenge(ctx context.Context, challengeID primitive.ObjectID) ([]domain.Participation, error)
	// Leaderboard returns up to limit rows in domain.CompareLive order.
	Leaderboard(ctx context.Context, challengeID primitive.ObjectID, limit int) ([]domain.Participation, error)
	CountByChallenge(ctx context.Context, challengeID primitive.ObjectID) (int64, error)
	// ListByUser returns the user's enrollments, most recently joined first.
	ListByUser(ctx context.Context, userGymID string) ([]domain.Participation, error)
}

// ExportRepository defines the interface for attendance export metadata.
type ExportRepository interface {
	Create(ctx context.Context, export *domain.AttendanceExport) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AttendanceExport, error)
}
