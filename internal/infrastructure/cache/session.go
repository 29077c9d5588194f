package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

// SessionPrefix namespaces session keys
const SessionPrefix = "intake:session:"

// DefaultSessionTTL bounds how long an abandoned call's state is kept
const DefaultSessionTTL = 2 * time.Hour

// SessionArena stores in-flight intake states keyed by call id. It backs up
// the payload the voice runtime echoes between turns.
type SessionArena struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionArena creates a Redis-backed session arena
func NewSessionArena(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionArena {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionArena{client: client, ttl: ttl, logger: logger}
}

// Get returns the stored state, or nil for an unknown call
func (a *SessionArena) Get(ctx context.Context, callID string) (*intake.State, error) {
	raw, err := a.client.Get(ctx, SessionPrefix+callID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		a.logger.Error("session get failed", zap.String("call_id", callID), zap.Error(err))
		return nil, fmt.Errorf("session get failed: %w", err)
	}

	var state intake.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decoding session for %s: %w", callID, err)
	}
	return &state, nil
}

// Put stores the state and refreshes its TTL
func (a *SessionArena) Put(ctx context.Context, state *intake.State) error {
	if state == nil || state.CallID == "" {
		return fmt.Errorf("session has no call id")
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session for %s: %w", state.CallID, err)
	}

	if err := a.client.Set(ctx, SessionPrefix+state.CallID, raw, a.ttl).Err(); err != nil {
		a.logger.Error("session put failed",
			zap.String("call_id", state.CallID),
			zap.Duration("ttl", a.ttl),
			zap.Error(err))
		return fmt.Errorf("session put failed: %w", err)
	}
	return nil
}

// Remove drops the state. Removing an unknown call is not an error.
func (a *SessionArena) Remove(ctx context.Context, callID string) error {
	if err := a.client.Del(ctx, SessionPrefix+callID).Err(); err != nil {
		a.logger.Error("session remove failed", zap.String("call_id", callID), zap.Error(err))
		return fmt.Errorf("session remove failed: %w", err)
	}
	return nil
}
