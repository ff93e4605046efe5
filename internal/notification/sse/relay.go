package sse

import (
	"context"
	"encoding/json"
	"strings"

	"realty_leads_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "realtime:"

// RedisRelay publishes realtime events through Redis pub/sub so every API
// instance delivers them to its own SSE clients.
type RedisRelay struct {
	rdb   *redis.Client
	local *Service
	log   *logger.Logger
}

func NewRedisRelay(rdb *redis.Client, local *Service, log *logger.Logger) *RedisRelay {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &RedisRelay{rdb: rdb, local: local, log: log}
}

// Publish is fire-and-forget; failures are logged.
func (r *RedisRelay) Publish(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Warn("realtime payload not serializable", "topic", topic, "error", err)
		return
	}
	if err := r.rdb.Publish(ctx, channelPrefix+topic, data).Err(); err != nil {
		r.log.Warn("realtime publish failed", "topic", topic, "error", err)
	}
}

// Run relays messages from Redis to local subscribers until ctx is done.
// ready, when non-nil, is closed once the subscription is active.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer func() {
		_ = sub.Close()
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.local.Deliver(Event{
				Topic:   strings.TrimPrefix(msg.Channel, channelPrefix),
				Payload: json.RawMessage(msg.Payload),
			})
		}
	}
}
