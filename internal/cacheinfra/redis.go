package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
)

// Sentinel errors for the redis driver.
var (
	ErrInvalidRedisURL    = errors.New("cacheinfra: redis url must use redis:// or rediss://")
	ErrRedisUnavailable   = errors.New("cacheinfra: redis connection failed")
	errRedisSchemeMissing = errors.New("must start with redis:// or rediss://")
)

// RedisConfig configures the redis connection used by the redis driver.
type RedisConfig struct {
	URL           string
	PoolSize      int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	RetryAttempts int
	RetryInterval time.Duration
}

// DefaultRedisConfig returns connection defaults for a local redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:           "redis://localhost:6379/0",
		PoolSize:      10,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		RetryAttempts: 3,
		RetryInterval: time.Second,
	}
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required, validation.By(redisScheme)),
		validation.Field(&c.PoolSize, validation.Min(0)),
		validation.Field(&c.RetryAttempts, validation.Min(0)),
	)
}

func redisScheme(value any) error {
	url, _ := value.(string)
	if url == "" || strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		return nil
	}
	return errRedisSchemeMissing
}

// OpenRedis creates a redis client and verifies it with PING, retrying with
// a linear backoff.
func OpenRedis(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidRedisURL, err)
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrInvalidRedisURL, err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisUnavailable, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, ErrRedisUnavailable
}

// RedisDriver stores entries in redis with native key expiration.
type RedisDriver struct {
	client redis.UniversalClient
	scope  string
	owned  bool
}

// NewRedisDriver wraps client. When scope is set Flush only removes keys
// matching "{scope}:*"; otherwise it flushes the selected database.
func NewRedisDriver(client redis.UniversalClient, scope string) *RedisDriver {
	return &RedisDriver{client: client, scope: scope}
}

// NewOwnedRedisDriver is NewRedisDriver for a client the driver must close.
func NewOwnedRedisDriver(client redis.UniversalClient, scope string) *RedisDriver {
	return &RedisDriver{client: client, scope: scope, owned: true}
}

// Get returns the stored bytes.
func (d *RedisDriver) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := d.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Put stores value with ttl. Redis treats a zero expiration as persistent,
// which is what a negative ttl asks for.
func (d *RedisDriver) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		return d.client.Del(ctx, key).Err()
	}
	return d.client.Set(ctx, key, value, max(ttl, 0)).Err()
}

// Forget removes a single key.
func (d *RedisDriver) Forget(ctx context.Context, key string) error {
	return d.client.Del(ctx, key).Err()
}

// Flush removes the driver's keys using SCAN, or FLUSHDB without a scope.
func (d *RedisDriver) Flush(ctx context.Context) error {
	if d.scope == "" {
		return d.client.FlushDB(ctx).Err()
	}

	pattern := d.scope + ":*"
	var cursor uint64
	for {
		keys, next, err := d.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := d.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close releases the client only when the driver owns it.
func (d *RedisDriver) Close() error {
	if !d.owned {
		return nil
	}
	return d.client.Close()
}
