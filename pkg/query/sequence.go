package query

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/smarthealth/platform/pkg/common/logger"
)

// RedisSequencer allocates per-session chat sequence numbers with INCR, so
// concurrent turns of one session never collide.
type RedisSequencer struct {
	client *redis.Client
}

func NewRedisSequencer(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{client: client}
}

func (s *RedisSequencer) Next(ctx context.Context, sessionID string) int64 {
	seq, err := s.client.Incr(ctx, "chat:seq:"+sessionID).Result()
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"session_id": sessionID,
		}).Warn("Sequence allocation failed, defaulting to 1")
		return 1
	}
	return seq
}
