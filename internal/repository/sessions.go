package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hireflow/hireflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionsCollection = "sessions"

// SessionsRepository mirrors in-memory session state to Mongo on
// lifecycle transitions.
type SessionsRepository struct {
	mongoRepo *MongoRepository
}

func NewSessionsRepository(mongoRepo *MongoRepository) *SessionsRepository {
	return &SessionsRepository{
		mongoRepo: mongoRepo,
	}
}

// UpsertSession writes the latest snapshot keyed by session id.
func (r *SessionsRepository) UpsertSession(ctx context.Context, state *models.SessionState) error {
	filter := bson.M{"_id": state.ID}
	update := bson.M{"$set": bson.M{
		"token":          state.Token,
		"testId":         state.TestID,
		"preview":        state.Preview,
		"step":           state.Step,
		"startedAt":      state.StartedAt,
		"deadline":       state.Deadline,
		"answers":        state.Answers,
		"tabSwitchCount": state.TabSwitchCount,
		"terminated":     state.Terminated,
		"updatedAt":      time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	if err := r.mongoRepo.UpdateOne(ctx, sessionsCollection, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert session state: %w", err)
	}

	return nil
}
