package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces slot keys in a shared Redis database.
const DefaultRedisPrefix = "recipe-catalog:"

// Connection checks at startup retry with exponential backoff so the server
// can start alongside a Redis that is still coming up.
const (
	redisPingTimeout       = 2 * time.Second
	redisConnectMaxElapsed = 15 * time.Second
)

func newRedisConnectBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = redisConnectMaxElapsed
	return bo
}

// redisClient is the subset of *redis.Client used by RedisSlot.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisOptions configures a RedisSlot. URL takes precedence over Addr.
type RedisOptions struct {
	Addr     string
	URL      string
	Password string
	DB       int
	Prefix   string
}

// RedisSlot stores values as plain Redis strings.
type RedisSlot struct {
	client redisClient
	prefix string
}

// NewRedisSlot connects to Redis and verifies the connection.
func NewRedisSlot(ctx context.Context, opts RedisOptions) (*RedisSlot, error) {
	clientOpts := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}

	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		clientOpts = parsed
	}

	client := redis.NewClient(clientOpts)

	if err := pingRedis(ctx, client, newRedisConnectBackoff()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", clientOpts.Addr, err)
	}

	return newRedisSlot(client, opts.Prefix), nil
}

// pingRedis pings until the server answers, bo gives up or ctx ends.
func pingRedis(ctx context.Context, client *redis.Client, bo backoff.BackOff) error {
	return backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}, backoff.WithContext(bo, ctx))
}

func newRedisSlot(client redisClient, prefix string) *RedisSlot {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisSlot{client: client, prefix: prefix}
}

// Read returns the string stored under the prefixed key.
func (r *RedisSlot) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return data, nil
}

// Write sets the prefixed key without expiry. SET replaces the value in a
// single command.
func (r *RedisSlot) Write(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Close closes the Redis client.
func (r *RedisSlot) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
