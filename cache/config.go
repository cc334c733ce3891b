package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-query-cache/internal/cacheinfra"
)

// Supported values for Config.Driver.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// Driver selects the backend: memory, redis or badger. Default: memory.
	Driver string `toml:"driver" yaml:"driver"`

	// Prefix namespaces every key, including tag bookkeeping keys. Redis and
	// badger also scope Flush to it.
	Prefix string `toml:"prefix" yaml:"prefix"`

	Memory MemoryConfig `toml:"memory" yaml:"memory"`
	Redis  RedisConfig  `toml:"redis" yaml:"redis"`
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// MemoryConfig mirrors the in-process sturdyc driver options.
type MemoryConfig struct {
	Capacity           int           `toml:"capacity" yaml:"capacity"`
	NumShards          int           `toml:"num_shards" yaml:"num_shards"`
	EvictionPercentage int           `toml:"eviction_percentage" yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `toml:"eviction_interval" yaml:"eviction_interval"`
}

// RedisConfig mirrors the redis driver options.
type RedisConfig struct {
	URL           string        `toml:"url" yaml:"url"`
	PoolSize      int           `toml:"pool_size" yaml:"pool_size"`
	DialTimeout   time.Duration `toml:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout   time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	RetryAttempts int           `toml:"retry_attempts" yaml:"retry_attempts"`
	RetryInterval time.Duration `toml:"retry_interval" yaml:"retry_interval"`
}

// BadgerConfig mirrors the embedded badger driver options.
type BadgerConfig struct {
	Path     string `toml:"path" yaml:"path"`
	InMemory bool   `toml:"in_memory" yaml:"in_memory"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver: DriverMemory,
		Memory: memoryFromInternal(cacheinfra.DefaultMemoryConfig()),
		Redis:  redisFromInternal(cacheinfra.DefaultRedisConfig()),
		Badger: BadgerConfig{InMemory: true},
	}
}

// Validate checks the driver name and the options of the selected driver only.
func (c Config) Validate() error {
	switch c.driver() {
	case DriverMemory:
		return c.Memory.toInternal().Validate()
	case DriverRedis:
		return c.Redis.toInternal().Validate()
	case DriverBadger:
		return c.Badger.toInternal().Validate()
	default:
		return &ConfigError{Field: "Driver", Message: "must be one of memory, redis, badger"}
	}
}

// Open builds a Store backed by the driver named in cfg. The prefix from cfg
// is applied before opts, so an explicit WithPrefix wins.
func Open[V any](ctx context.Context, cfg Config, opts ...Option) (*Store[V], error) {
	driver, err := OpenDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	return NewStore[V](driver, nil, opts...), nil
}

// OpenDriver opens the byte level driver named in cfg.
func OpenDriver(ctx context.Context, cfg Config) (Driver, error) {
	if err := cfg.Validate(); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) && cfgErr.Field == "Driver" {
			return nil, errors.Join(ErrUnknownDriver, err)
		}
		return nil, err
	}

	switch cfg.driver() {
	case DriverRedis:
		client, err := cacheinfra.OpenRedis(ctx, cfg.Redis.toInternal())
		if err != nil {
			return nil, err
		}
		return cacheinfra.NewOwnedRedisDriver(client, cfg.Prefix), nil
	case DriverBadger:
		return cacheinfra.NewBadgerDriver(cfg.Badger.toInternal(), cfg.Prefix)
	default:
		return cacheinfra.NewMemoryDriver(cfg.Memory.toInternal())
	}
}

func (c Config) driver() string {
	if c.Driver == "" {
		return DriverMemory
	}
	return c.Driver
}

func (c MemoryConfig) toInternal() cacheinfra.MemoryConfig {
	return cacheinfra.MemoryConfig{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func memoryFromInternal(cfg cacheinfra.MemoryConfig) MemoryConfig {
	return MemoryConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}

func (c RedisConfig) toInternal() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		URL:           c.URL,
		PoolSize:      c.PoolSize,
		DialTimeout:   c.DialTimeout,
		ReadTimeout:   c.ReadTimeout,
		WriteTimeout:  c.WriteTimeout,
		RetryAttempts: c.RetryAttempts,
		RetryInterval: c.RetryInterval,
	}
}

func redisFromInternal(cfg cacheinfra.RedisConfig) RedisConfig {
	return RedisConfig{
		URL:           cfg.URL,
		PoolSize:      cfg.PoolSize,
		DialTimeout:   cfg.DialTimeout,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryInterval: cfg.RetryInterval,
	}
}

func (c BadgerConfig) toInternal() cacheinfra.BadgerConfig {
	return cacheinfra.BadgerConfig{Path: c.Path, InMemory: c.InMemory}
}
