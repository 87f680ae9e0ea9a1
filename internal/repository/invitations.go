package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hireflow/hireflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const invitationsCollection = "invitations"

type InvitationsRepository struct {
	mongoRepo *MongoRepository
}

func NewInvitationsRepository(mongoRepo *MongoRepository) *InvitationsRepository {
	return &InvitationsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *InvitationsRepository) InsertInvitation(ctx context.Context, inv *models.Invitation) error {
	inv.CreatedAt = time.Now()

	err := r.mongoRepo.InsertOne(ctx, invitationsCollection, inv)
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}

	return nil
}

// GetInvitationByToken returns (nil, nil) when no invitation exists so
// callers can fall back to direct test access.
func (r *InvitationsRepository) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	filter := bson.M{"token": token}

	var inv models.Invitation
	err := r.mongoRepo.FindOne(ctx, invitationsCollection, filter).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	return &inv, nil
}

func (r *InvitationsRepository) MarkCompleted(ctx context.Context, token string) error {
	filter := bson.M{"token": token}
	update := bson.M{"$set": bson.M{"status": models.InvitationCompleted}}

	if err := r.mongoRepo.UpdateOne(ctx, invitationsCollection, filter, update); err != nil {
		return fmt.Errorf("failed to mark invitation completed: %w", err)
	}

	return nil
}
