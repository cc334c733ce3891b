package cacheinfra

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// sturdyc applies a single TTL to the whole client. Entries carry their own
// deadline instead, so the client TTL only has to outlive every entry.
const clientTTL = 100 * 365 * 24 * time.Hour

// MemoryConfig holds the configuration for the sturdyc backed memory driver.
type MemoryConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc sweeps its shards.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults for most use cases.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          256,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional parts of the config to sturdyc options.
// Capacity, NumShards and EvictionPercentage go to sturdyc.New directly.
func (c MemoryConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero value = never expires
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryDriver is an in-process byte store on top of a sturdyc client.
type MemoryDriver struct {
	client *sturdyc.Client[memoryEntry]
	now    func() time.Time
}

// NewMemoryDriver validates cfg and initializes a sturdyc client.
func NewMemoryDriver(cfg MemoryConfig) (*MemoryDriver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[memoryEntry](
		cfg.Capacity,
		cfg.NumShards,
		clientTTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryDriver{client: client, now: time.Now}, nil
}

// Get returns the stored bytes, dropping the entry if its deadline passed.
func (d *MemoryDriver) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := d.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if entry.expired(d.now()) {
		d.client.Delete(key)
		return nil, false, nil
	}
	return entry.data, true, nil
}

// Put stores value until ttl elapses. A negative ttl never expires.
func (d *MemoryDriver) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{data: append([]byte(nil), value...)}
	if ttl >= 0 {
		entry.expiresAt = d.now().Add(ttl)
	}
	d.client.Set(key, entry)
	return nil
}

// Forget removes a single entry.
func (d *MemoryDriver) Forget(_ context.Context, key string) error {
	d.client.Delete(key)
	return nil
}

// Flush removes every entry.
func (d *MemoryDriver) Flush(_ context.Context) error {
	for _, key := range d.client.ScanKeys() {
		d.client.Delete(key)
	}
	return nil
}

// Len reports how many entries the client currently holds, expired or not.
func (d *MemoryDriver) Len() int {
	return d.client.Size()
}

// Close is a no-op; sturdyc has nothing to release.
func (d *MemoryDriver) Close() error {
	return nil
}
