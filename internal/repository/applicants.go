package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	candidatesCollection = "candidates"
	studentsCollection   = "students"
)

// ApplicantsRepository reads the two upstream applicant collections. The
// documents are dynamically shaped, so they are returned raw and mapped
// into the canonical record by the export adapters.
type ApplicantsRepository struct {
	mongoRepo *MongoRepository
}

func NewApplicantsRepository(mongoRepo *MongoRepository) *ApplicantsRepository {
	return &ApplicantsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ApplicantsRepository) GetCandidatesByIDs(ctx context.Context, ids []string) ([]bson.M, error) {
	return r.findByIDs(ctx, candidatesCollection, ids)
}

func (r *ApplicantsRepository) GetStudentsByIDs(ctx context.Context, ids []string) ([]bson.M, error) {
	return r.findByIDs(ctx, studentsCollection, ids)
}

func (r *ApplicantsRepository) findByIDs(ctx context.Context, collection string, ids []string) ([]bson.M, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}}

	cursor, err := r.mongoRepo.FindMany(ctx, collection, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}

	return docs, nil
}
