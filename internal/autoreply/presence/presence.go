// Package presence tracks which agents are currently online.
package presence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Tracker records heartbeats and answers liveness questions.
type Tracker interface {
	Heartbeat(ctx context.Context, agentID uuid.UUID) error
	IsOnline(ctx context.Context, agentID uuid.UUID) (bool, error)
}

// RedisTracker stores one expiring key per agent.
type RedisTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTracker(rdb *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisTracker{rdb: rdb, ttl: ttl}
}

func key(agentID uuid.UUID) string {
	return "presence:agent:" + agentID.String()
}

func (t *RedisTracker) Heartbeat(ctx context.Context, agentID uuid.UUID) error {
	return t.rdb.Set(ctx, key(agentID), time.Now().UTC().Format(time.RFC3339), t.ttl).Err()
}

func (t *RedisTracker) IsOnline(ctx context.Context, agentID uuid.UUID) (bool, error) {
	err := t.rdb.Get(ctx, key(agentID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Offline is used when Redis is not configured. Every agent counts as offline.
type Offline struct{}

func (Offline) Heartbeat(context.Context, uuid.UUID) error { return nil }

func (Offline) IsOnline(context.Context, uuid.UUID) (bool, error) { return false, nil }
