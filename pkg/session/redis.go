package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/flowscope/pkg/cache"
)

// RedisConfig configures a [RedisStore].
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Keyer lays out keys. Defaults to the unscoped key layout.
	Keyer cache.Keyer
	TTL   time.Duration
}

// RedisStore keeps compressed records in Redis with native expiry.
type RedisStore struct {
	client *redis.Client
	keyer  cache.Keyer
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return newRedisStore(client, cfg), nil
}

func newRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	return &RedisStore{client: client, keyer: cfg.Keyer, ttl: cfg.TTL}
}

// redisErr marks connection failures as retryable.
func redisErr(err error) error {
	var ne net.Error
	if stderrors.As(err, &ne) {
		return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	return err
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	var data []byte
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		data, err = s.client.Get(ctx, s.keyer.SnapshotKey(id)).Bytes()
		return redisErr(err)
	})
	if stderrors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decode(data)
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	stamp(rec, s.ttl)
	data, err := encode(rec)
	if err != nil {
		return err
	}
	return cache.RetryWithBackoff(ctx, func() error {
		return redisErr(s.client.Set(ctx, s.keyer.SnapshotKey(rec.ID), data, s.ttl).Err())
	})
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return cache.RetryWithBackoff(ctx, func() error {
		return redisErr(s.client.Del(ctx, s.keyer.SnapshotKey(id)).Err())
	})
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	prefix := s.keyer.SnapshotKey("")
	var ids []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// Close implements Store.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
