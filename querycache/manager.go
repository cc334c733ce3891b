package querycache

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// Manager holds named connections and the cache they share, and hands out
// builders bound to them. It is safe for concurrent use.
type Manager struct {
	connections *xsync.MapOf[string, Executor]
	settings    settings

	mu          sync.RWMutex
	defaultName string
}

// NewManager creates an empty manager. Options apply to every builder it
// creates.
func NewManager(opts ...Option) *Manager {
	return &Manager{
		connections: xsync.NewMapOf[string, Executor](),
		settings:    newSettings(opts...),
	}
}

// AddConnection registers executor under its name, replacing any previous
// connection with that name. The first connection becomes the default.
func (m *Manager) AddConnection(executor Executor) {
	name := executor.Name()
	m.connections.Store(name, executor)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.defaultName == "" {
		m.defaultName = name
	}
}

// SetDefaultConnection selects the connection used when no name is given.
func (m *Manager) SetDefaultConnection(name string) error {
	if _, ok := m.connections.Load(name); !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = name
	return nil
}

// DefaultConnection returns the name of the default connection.
func (m *Manager) DefaultConnection() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultName
}

// Connection returns the named executor, or the default one for "".
func (m *Manager) Connection(name string) (Executor, error) {
	if name == "" {
		name = m.DefaultConnection()
		if name == "" {
			return nil, ErrNoDefaultConnection
		}
	}

	executor, ok := m.connections.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}
	return executor, nil
}

// Connections returns the registered connection names, sorted.
func (m *Manager) Connections() []string {
	names := make([]string, 0, m.connections.Size())
	m.connections.Range(func(name string, _ Executor) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Cache returns the shared cache service, which may be nil.
func (m *Manager) Cache() cache.TaggableService[[]Row] {
	return m.settings.cache
}

// Table starts a query on the default connection.
func (m *Manager) Table(table string) (*Builder, error) {
	return m.TableOn("", table)
}

// TableOn starts a query on the named connection.
func (m *Manager) TableOn(connection, table string) (*Builder, error) {
	executor, err := m.Connection(connection)
	if err != nil {
		return nil, err
	}

	return &Builder{
		executor:   executor,
		cache:      m.settings.cache,
		serializer: m.settings.serializer,
		grammar:    m.settings.grammar,
		shape:      Shape{Table: table},
	}, nil
}
