// Package config loads the query cache configuration from TOML or YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/internal/dbinfra"
)

var (
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
	ErrRead              = errors.New("config: failed to read file")
	ErrDecode            = errors.New("config: failed to decode file")
)

// Config is the top level configuration consumed by the container and CLI.
type Config struct {
	DefaultConnection string       `toml:"default_connection" yaml:"default_connection"`
	Connections       []Connection `toml:"connections" yaml:"connections"`
	Cache             cache.Config `toml:"cache" yaml:"cache"`
	Log               LogConfig    `toml:"log" yaml:"log"`
}

// Connection names a database and how to reach it.
type Connection struct {
	Name         string `toml:"name" yaml:"name"`
	Driver       string `toml:"driver" yaml:"driver"`
	DSN          string `toml:"dsn" yaml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns" yaml:"max_open_conns"`

	// RetryAttempts and RetryInterval control the startup ping backoff.
	RetryAttempts int           `toml:"retry_attempts" yaml:"retry_attempts"`
	RetryInterval time.Duration `toml:"retry_interval" yaml:"retry_interval"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns a single in-memory SQLite connection backed by the memory cache.
func Default() Config {
	return Config{
		DefaultConnection: "main",
		Connections:       []Connection{defaultConnection()},
		Cache:             cache.DefaultConfig(),
		Log:               LogConfig{Level: "info", Format: "text"},
	}
}

func defaultConnection() Connection {
	return Connection{
		Name:          "main",
		Driver:        dbinfra.DriverSQLite,
		DSN:           ":memory:",
		RetryAttempts: 1,
		RetryInterval: time.Second,
	}
}

// Load reads path, picking the decoder from its extension, on top of Default.
// Connections from the file replace the default connection entirely.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Join(ErrRead, err)
	}

	cfg := Default()
	cfg.DefaultConnection = ""
	cfg.Connections = nil

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return Config{}, errors.Join(ErrDecode, fmt.Errorf("%s: %w", path, err))
	}

	if len(cfg.Connections) == 0 {
		cfg.Connections = []Connection{defaultConnection()}
	}
	if cfg.DefaultConnection == "" {
		cfg.DefaultConnection = cfg.Connections[0].Name
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section, including the selected cache driver.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Connections, validation.Required, validation.By(uniqueNames)),
		validation.Field(&c.DefaultConnection, validation.Required, validation.By(c.knownConnection)),
		validation.Field(&c.Cache),
		validation.Field(&c.Log),
	)
}

// Validate checks the connection against the supported drivers.
func (c Connection) Validate() error {
	return c.DB().Validate()
}

// DB converts the connection into the settings dbinfra opens.
func (c Connection) DB() dbinfra.Config {
	return dbinfra.Config{
		Name:          c.Name,
		Driver:        c.Driver,
		DSN:           c.DSN,
		MaxOpenConns:  c.MaxOpenConns,
		RetryAttempts: c.RetryAttempts,
		RetryInterval: c.RetryInterval,
	}
}

// Validate checks the level and format names.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("", "debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("", "text", "json")),
	)
}

// NewLogger builds a slog logger writing to w, os.Stderr when nil.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: l.level()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (l LogConfig) level() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Connection returns the named connection.
func (c Config) Connection(name string) (Connection, bool) {
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return Connection{}, false
}

func (c Config) knownConnection(value any) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, ok := c.Connection(name); !ok {
		return fmt.Errorf("unknown connection %q", name)
	}
	return nil
}

func uniqueNames(value any) error {
	conns, _ := value.([]Connection)
	seen := make(map[string]struct{}, len(conns))
	for _, conn := range conns {
		if _, dup := seen[conn.Name]; dup {
			return fmt.Errorf("duplicate connection %q", conn.Name)
		}
		seen[conn.Name] = struct{}{}
	}
	return nil
}
