package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an abandoned conversation's stages survive.
const DefaultTTL = 30 * time.Minute

// Key returns the Redis key for one stage of a conversation.
// Pattern: koorda:{instance_name}:session:{conversation_id}:{stage}
func Key(instanceName, conversationID string, stage Stage) string {
	return fmt.Sprintf("koorda:%s:session:%s:%s", instanceName, conversationID, stage)
}

// RedisStore keeps snapshots as JSON strings in Redis. Every write refreshes
// the key's TTL so stages of a live conversation never expire mid-dialogue.
// Safe for concurrent use.
type RedisStore struct {
	rdb          *redis.Client
	instanceName string
	ttl          time.Duration
}

// NewRedisStore creates a store namespaced by instanceName. A ttl of zero uses
// DefaultTTL; a negative ttl disables expiry.
func NewRedisStore(redisOpts *redis.Options, instanceName string, ttl time.Duration) (*RedisStore, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}

	return &RedisStore{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		ttl:          ttl,
	}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Used by health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Put(ctx context.Context, conversationID string, stage Stage, v any) error {
	if err := validate(conversationID, stage); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}

	key := Key(s.instanceName, conversationID, stage)
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", stage, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, conversationID string, stage Stage, out any) error {
	if err := validate(conversationID, stage); err != nil {
		return err
	}

	data, err := s.rdb.Get(ctx, Key(s.instanceName, conversationID, stage)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", stage, err)
	}
	return decode(data, out)
}

func (s *RedisStore) Exists(ctx context.Context, conversationID string, stage Stage) (bool, error) {
	if err := validate(conversationID, stage); err != nil {
		return false, err
	}

	n, err := s.rdb.Exists(ctx, Key(s.instanceName, conversationID, stage)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot %s: %w", stage, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string, stages ...Stage) error {
	if len(stages) == 0 {
		return nil
	}

	keys := make([]string, 0, len(stages))
	for _, stage := range stages {
		if err := validate(conversationID, stage); err != nil {
			return err
		}
		keys = append(keys, Key(s.instanceName, conversationID, stage))
	}

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

func (s *RedisStore) Purge(ctx context.Context, conversationID string) error {
	return s.Delete(ctx, conversationID, Stages...)
}
