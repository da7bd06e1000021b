package mongo

import (
	"context"
	"errors"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const participationCollectionName = "participations"

// liveLeaderboardSort must stay in step with domain.CompareLive.
var liveLeaderboardSort = bson.D{
	{Key: "percentComplete", Value: -1},
	{Key: "completedCount", Value: -1},
	{Key: "longestStreak", Value: -1},
	{Key: "lastActivityAt", Value: -1},
	{Key: "_id", Value: 1},
}

// mongoParticipationRepository implements repository.ParticipationRepository
type mongoParticipationRepository struct {
	collection *mongo.Collection
}

// NewMongoParticipationRepository creates a new Participation repository backed by MongoDB.
func NewMongoParticipationRepository(db *mongo.Database) repository.ParticipationRepository {
	return &mongoParticipationRepository{
		collection: db.Collection(participationCollectionName),
	}
}

// Create inserts a participation. The unique (challengeId, userGymId) index
// turns a concurrent double join into ErrDuplicate.
func (r *mongoParticipationRepository) Create(ctx context.Context, p *domain.Participation) (primitive.ObjectID, error) {
	if p.ChallengeID == primitive.NilObjectID || p.UserGymID == "" {
		return primitive.NilObjectID, errors.New("participation requires challengeId and userGymId")
	}

	p.ID = primitive.NewObjectID()
	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted participation ID")
	}
	return insertedID, nil
}

// Get retrieves one user's participation in a challenge.
func (r *mongoParticipationRepository) Get(ctx context.Context, challengeID primitive.ObjectID, userGymID string) (*domain.Participation, error) {
	var p domain.Participation
	filter := bson.M{"challengeId": challengeID, "userGymId": userGymID}

	err := r.collection.FindOne(ctx, filter).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProgress is a compare-and-swap on the version field: the write only
// lands if nobody else wrote the document since p was read.
func (r *mongoParticipationRepository) UpdateProgress(ctx context.Context, p *domain.Participation) error {
	filter := bson.M{"_id": p.ID, "version": p.Version}
	update := bson.M{
		"$set": bson.M{
			"progress":        p.Progress,
			"completedCount":  p.CompletedCount,
			"currentStreak":   p.CurrentStreak,
			"longestStreak":   p.LongestStreak,
			"percentComplete": p.PercentComplete,
			"lastActivityAt":  p.LastActivityAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the document is gone or its version moved on
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": p.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	p.Version++
	return nil
}

// Delete removes one user's participation.
func (r *mongoParticipationRepository) Delete(ctx context.Context, challengeID primitive.ObjectID, userGymID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"challengeId": challengeID, "userGymId": userGymID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByChallenge removes every participation of a challenge.
func (r *mongoParticipationRepository) DeleteByChallenge(ctx context.Context, challengeID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"challengeId": challengeID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// ListByChallenge retrieves every participation of a challenge in join order.
func (r *mongoParticipationRepository) ListByChallenge(ctx context.Context, challengeID primitive.ObjectID) ([]domain.Participation, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}})
	return r.find(ctx, bson.M{"challengeId": challengeID}, findOptions)
}

// Leaderboard retrieves the top rows of a challenge, sorted live.
func (r *mongoParticipationRepository) Leaderboard(ctx context.Context, challengeID primitive.ObjectID, limit int) ([]domain.Participation, error) {
	findOptions := options.Find().SetSort(liveLeaderboardSort)
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"challengeId": challengeID}, findOptions)
}

// CountByChallenge counts a challenge's participations.
func (r *mongoParticipationRepository) CountByChallenge(ctx context.Context, challengeID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"challengeId": challengeID})
}

// ListByUser retrieves a user's participations, newest join first.
func (r *mongoParticipationRepository) ListByUser(ctx context.Context, userGymID string) ([]domain.Participation, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: -1}})
	return r.find(ctx, bson.M{"userGymId": userGymID}, findOptions)
}

func (r *mongoParticipationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Participation, error) {
	var rows []domain.Participation
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// EnsureParticipationIndexes creates necessary indexes for the participations collection.
func EnsureParticipationIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// A user joins a challenge at most once
			Keys:    bson.D{{Key: "challengeId", Value: 1}, {Key: "userGymId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Live leaderboard query
			Keys: bson.D{
				{Key: "challengeId", Value: 1},
				{Key: "percentComplete", Value: -1},
				{Key: "completedCount", Value: -1},
				{Key: "longestStreak", Value: -1},
				{Key: "lastActivityAt", Value: -1},
			},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userGymId", Value: 1}, {Key: "joinedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
