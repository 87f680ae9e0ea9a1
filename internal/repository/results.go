package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hireflow/hireflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	resultsCollection        = "results"
	previewResultsCollection = "preview_results"
)

type ResultsRepository struct {
	mongoRepo *MongoRepository
}

func NewResultsRepository(mongoRepo *MongoRepository) *ResultsRepository {
	return &ResultsRepository{
		mongoRepo: mongoRepo,
	}
}

// InsertResult writes to the preview collection for preview-mode sessions
// and the real one otherwise.
func (r *ResultsRepository) InsertResult(ctx context.Context, result *models.Result) error {
	result.CreatedAt = time.Now()

	collection := resultsCollection
	if result.Preview {
		collection = previewResultsCollection
	}

	err := r.mongoRepo.InsertOne(ctx, collection, result)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	return nil
}

func (r *ResultsRepository) GetResultByInvitationID(ctx context.Context, invitationID string) (*models.Result, error) {
	filter := bson.M{"invitationId": invitationID}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var result models.Result
	err := r.mongoRepo.FindOne(ctx, resultsCollection, filter, opts).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find result: %w", err)
	}

	return &result, nil
}

func (r *ResultsRepository) GetResultsByTestID(ctx context.Context, testID string) ([]*models.Result, error) {
	filter := bson.M{"testId": testID}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.mongoRepo.FindMany(ctx, resultsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find results: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*models.Result
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	return results, nil
}
