package casestore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// processedSetKey namespaces the processed-message set in Redis.
const processedSetKey = "caselink:processed"

// RedisProcessedSet keeps the processed-message set in a Redis SET so
// several importer processes share one view of what has already been
// reconciled. The set is append-only and carries no TTL: re-ingesting an
// old export must stay a no-op indefinitely.
type RedisProcessedSet struct {
	rdb *redis.Client
}

// NewRedisProcessedSet creates a processed set backed by Redis.
func NewRedisProcessedSet(rdb *redis.Client) *RedisProcessedSet {
	return &RedisProcessedSet{rdb: rdb}
}

// MarkProcessed adds the message ids to the set.
func (s *RedisProcessedSet) MarkProcessed(ctx context.Context, messageIDs ...string) error {
	members := make([]interface{}, 0, len(messageIDs))
	for _, id := range messageIDs {
		if id != "" {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return nil
	}
	if err := s.rdb.SAdd(ctx, processedSetKey, members...).Err(); err != nil {
		return fmt.Errorf("processed SADD: %w", err)
	}
	return nil
}

// IsProcessed reports set membership.
func (s *RedisProcessedSet) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, processedSetKey, messageID).Result()
	if err != nil {
		return false, fmt.Errorf("processed SISMEMBER: %w", err)
	}
	return ok, nil
}
