package intake

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"clerk/internal/reconcile"
	"clerk/pkg/platform/sentinel"
)

const (
	defaultRedisPrefix = "clerk:snapshot:"
	redisIndexSuffix   = "index"
)

// RedisStore keeps each snapshot as a hash of field key to value and tracks
// ids in a set so empty snapshots stay visible.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix namespaces the keys the store writes.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Snapshot, error) {
	var (
		member *redis.BoolCmd
		fields *redis.MapStringStringCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		member = pipe.SIsMember(ctx, s.indexKey(), id)
		fields = pipe.HGetAll(ctx, s.key(id))
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	if !member.Val() {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, sentinel.ErrNotFound)
	}
	return Snapshot{ID: id, Fields: reconcile.NewClientRecord(fields.Val())}, nil
}

// Save replaces the stored hash atomically.
func (s *RedisStore) Save(ctx context.Context, snapshot Snapshot) error {
	if snapshot.ID == "" {
		return fmt.Errorf("snapshot id is required: %w", sentinel.ErrInvalidInput)
	}
	fields := snapshot.Fields.Fields()
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(snapshot.ID))
		if len(values) > 0 {
			pipe.HSet(ctx, s.key(snapshot.ID), values)
		}
		pipe.SAdd(ctx, s.indexKey(), snapshot.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + "data:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + redisIndexSuffix
}
