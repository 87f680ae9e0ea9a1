package session

import (
	"context"
	"fmt"
	"time"

	redisInfra "github.com/hireflow/hireflow/internal/infra/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Step string

const (
	StepCreated      Step = "created"
	StepVerification Step = "verification"
	StepInProgress   Step = "in_progress"
	StepCompleted    Step = "completed"
	StepTerminated   Step = "terminated"
)

// Backstop holds the Redis-backed side state of a session: edited code
// (durability against reload), the per-token verification memo, and the
// session step status key. All writes are best-effort; a Redis failure
// is logged and never surfaced to the user action.
type Backstop struct {
	client *redisInfra.Client
	ttl    time.Duration
}

func NewBackstop(client *redisInfra.Client) *Backstop {
	return &Backstop{
		client: client,
		ttl:    12 * time.Hour,
	}
}

func codeKey(sessionID, sectionID, questionID string) string {
	return fmt.Sprintf("code:%s:%s:%s", sessionID, sectionID, questionID)
}

func (b *Backstop) SaveCode(ctx context.Context, sessionID, sectionID, questionID, code string) error {
	key := codeKey(sessionID, sectionID, questionID)

	if err := b.client.Set(ctx, key, code, b.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to backstop code, continuing")
		return err
	}
	return nil
}

func (b *Backstop) LoadCode(ctx context.Context, sessionID, sectionID, questionID string) (string, bool) {
	key := codeKey(sessionID, sectionID, questionID)

	code, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to read backstopped code")
		return "", false
	}
	return code, true
}

// MarkVerified memoizes gate completion for a token so a returning
// session skips the gate.
func (b *Backstop) MarkVerified(ctx context.Context, token string) {
	key := "verification_complete:" + token

	if err := b.client.Set(ctx, key, "1", b.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("token", token).Msg("Failed to memoize verification")
	}
}

func (b *Backstop) IsVerified(ctx context.Context, token string) bool {
	key := "verification_complete:" + token

	val, err := b.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return val == "1"
}

// SetStep records the session's lifecycle step under a TTL'd status key.
func (b *Backstop) SetStep(ctx context.Context, sessionID string, step Step) error {
	validSteps := map[Step]bool{
		StepCreated:      true,
		StepVerification: true,
		StepInProgress:   true,
		StepCompleted:    true,
		StepTerminated:   true,
	}
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := "session_status:" + sessionID

	if err := b.client.Set(ctx, rkey, string(step), b.ttl).Err(); err != nil {
		log.Warn().Err(err).
			Str("step", string(step)).
			Str("sessionID", sessionID).
			Msg("Failed to update session step in Redis")
		return fmt.Errorf("failed to update session step: %w", err)
	}

	return nil
}
