package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// BadgerConfig configures the embedded badger driver.
type BadgerConfig struct {
	// Path is the badger data directory. Required unless InMemory is set.
	Path string

	// InMemory keeps all data in memory; Path must be empty.
	InMemory bool
}

// Validate checks if the configuration values are valid.
func (c BadgerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path,
			validation.When(!c.InMemory, validation.Required),
			validation.When(c.InMemory, validation.Empty),
		),
	)
}

// BadgerDriver persists entries in an embedded badger database, using
// badger's per-entry TTL for expiration.
type BadgerDriver struct {
	db    *badger.DB
	scope []byte
}

// NewBadgerDriver opens the database described by cfg. When scope is set
// Flush drops only keys with the "{scope}:" prefix.
func NewBadgerDriver(cfg BadgerConfig, scope string) (*BadgerDriver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	d := &BadgerDriver{db: db}
	if scope != "" {
		d.scope = []byte(scope + ":")
	}
	return d, nil
}

// Get returns a copy of the stored bytes.
func (d *BadgerDriver) Get(_ context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put stores value with ttl; a negative ttl never expires.
func (d *BadgerDriver) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		return d.Forget(ctx, key)
	}

	return d.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Forget removes a single key.
func (d *BadgerDriver) Forget(_ context.Context, key string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Flush drops the driver's keys.
func (d *BadgerDriver) Flush(_ context.Context) error {
	if len(d.scope) == 0 {
		return d.db.DropAll()
	}
	return d.db.DropPrefix(d.scope)
}

// Close closes the database.
func (d *BadgerDriver) Close() error {
	return d.db.Close()
}
