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

const challengeCollectionName = "challenges"

// mongoChallengeRepository implements repository.ChallengeRepository
type mongoChallengeRepository struct {
	collection *mongo.Collection
}

// NewMongoChallengeRepository creates a new Challenge repository backed by MongoDB.
func NewMongoChallengeRepository(db *mongo.Database) repository.ChallengeRepository {
	return &mongoChallengeRepository{
		collection: db.Collection(challengeCollectionName),
	}
}

// Create inserts a new challenge into the database.
func (r *mongoChallengeRepository) Create(ctx context.Context, challenge *domain.Challenge) (primitive.ObjectID, error) {
	if challenge.Title == "" {
		return primitive.NilObjectID, errors.New("challenge title is required")
	}

	challenge.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	challenge.CreatedAt = now
	challenge.UpdatedAt = now
	if challenge.CachedLeaderboard == nil {
		challenge.CachedLeaderboard = []domain.LeaderboardSummary{}
	}

	result, err := r.collection.InsertOne(ctx, challenge)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted challenge ID")
	}
	return insertedID, nil
}

// GetByID retrieves a challenge by its ID.
func (r *mongoChallengeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Challenge, error) {
	var challenge domain.Challenge
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&challenge)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// GetByIDs retrieves the challenges whose ids are listed. Missing ids are skipped.
func (r *mongoChallengeRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Challenge, error) {
	if len(ids) == 0 {
		return []domain.Challenge{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// List retrieves challenges, newest first.
func (r *mongoChallengeRepository) List(ctx context.Context, activeOnly bool) ([]domain.Challenge, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, filter, findOptions)
}

func (r *mongoChallengeRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Challenge, error) {
	var challenges []domain.Challenge
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &challenges); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return challenges, nil
}

// Update modifies the editable fields of a challenge. The cached stats block
// is owned by UpdateStats and is never written here.
func (r *mongoChallengeRepository) Update(ctx context.Context, challenge *domain.Challenge) error {
	if challenge.ID == primitive.NilObjectID {
		return errors.New("challenge ID is required for update")
	}

	challenge.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"title":       challenge.Title,
		"description": challenge.Description,
		"type":        challenge.Type,
		"startDate":   challenge.StartDate,
		"endDate":     challenge.EndDate,
		"tasks":       challenge.Tasks,
		"tags":        challenge.Tags,
		"isActive":    challenge.IsActive,
		"updatedAt":   challenge.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": challenge.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateStats overwrites the cached summary block. Last writer wins.
func (r *mongoChallengeRepository) UpdateStats(ctx context.Context, id primitive.ObjectID, stats domain.ChallengeStats) error {
	if stats.CachedLeaderboard == nil {
		stats.CachedLeaderboard = []domain.LeaderboardSummary{}
	}
	update := bson.M{"$set": bson.M{
		"totalParticipants": stats.TotalParticipants,
		"averageCompletion": stats.AverageCompletion,
		"cachedLeaderboard": stats.CachedLeaderboard,
		"statsUpdatedAt":    stats.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a challenge document. Callers delete its participations first.
func (r *mongoChallengeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureChallengeIndexes creates necessary indexes for the challenges collection.
func EnsureChallengeIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// The scheduler sweeps active challenges
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
