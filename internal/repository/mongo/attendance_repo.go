package mongo

import (
	"context"
	"errors"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const attendanceCollectionName = "attendance"

// mongoAttendanceRepository implements repository.AttendanceRepository
type mongoAttendanceRepository struct {
	collection *mongo.Collection
}

// NewMongoAttendanceRepository creates a new attendance repository backed by MongoDB.
func NewMongoAttendanceRepository(db *mongo.Database) repository.AttendanceRepository {
	return &mongoAttendanceRepository{
		collection: db.Collection(attendanceCollectionName),
	}
}

// Create inserts a check-in. The unique (userId, date) index rejects a second
// check-in for the same day.
func (r *mongoAttendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) (primitive.ObjectID, error) {
	if record.UserID == "" || record.Date.IsZero() {
		return primitive.NilObjectID, errors.New("attendance record requires userId and date")
	}

	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted attendance ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single check-in.
func (r *mongoAttendanceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AttendanceRecord, error) {
	var record domain.AttendanceRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Delete removes a check-in.
func (r *mongoAttendanceRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByUser retrieves a user's check-ins ordered by date.
func (r *mongoAttendanceRepository) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]domain.AttendanceRecord, error) {
	filter := bson.M{"userId": userID}
	dateRange := bson.M{}
	if from != nil {
		dateRange["$gte"] = *from
	}
	if to != nil {
		dateRange["$lt"] = *to
	}
	if len(dateRange) > 0 {
		filter["date"] = dateRange
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

// ListBetween retrieves every check-in in [from, to), for reporting.
func (r *mongoAttendanceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.AttendanceRecord, error) {
	filter := bson.M{"date": bson.M{"$gte": from, "$lt": to}}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "userId", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

func (r *mongoAttendanceRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.AttendanceRecord, error) {
	var records []domain.AttendanceRecord
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// EnsureAttendanceIndexes creates necessary indexes for the attendance collection.
func EnsureAttendanceIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One check-in per user per day
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Monthly exports scan by date
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
