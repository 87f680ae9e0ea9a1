package repository

import (
	"context"
	"fmt"

	"github.com/hireflow/hireflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const testsCollection = "tests"

type TestsRepository struct {
	mongoRepo *MongoRepository
}

func NewTestsRepository(mongoRepo *MongoRepository) *TestsRepository {
	return &TestsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *TestsRepository) GetTestByID(ctx context.Context, testID string) (*models.Test, error) {
	filter := bson.M{"_id": testID}

	var test models.Test
	err := r.mongoRepo.FindOne(ctx, testsCollection, filter).Decode(&test)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find test: %w", err)
	}

	return &test, nil
}
