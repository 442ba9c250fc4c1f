package compound

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
	migrate "github.com/rubenv/sql-migrate"

	"sqlq/future"
	"sqlq/result"
	"sqlq/schema"
	"sqlq/shared/logger"
)

// Default side table names.
const (
	VectorTable   = "sqlq_vectors"
	LocationTable = "sqlq_locations"
	ItemTable     = "sqlq_items"
)

// TableCreator creates tables asynchronously.
type TableCreator interface {
	CreateTable(name string, def *schema.Definition) *future.Future[*schema.Table]
}

// Manager is the registry of compound handlers for one provider.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []Handler

	cacheMu   sync.Mutex
	fragments *lru.Cache
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		handlers:  make(map[string]Handler),
		fragments: lru.New(256),
	}
}

// NewDefaultManager registers the vector, location and item stack handlers.
func NewDefaultManager() *Manager {
	m := NewManager()
	m.Register(NewVectorHandler(VectorTable))
	m.Register(NewLocationHandler(LocationTable))
	m.Register(NewItemStackHandler(ItemTable))
	return m
}

// Register adds or replaces the handler for its data type.
func (m *Manager) Register(h Handler) {
	key := strings.ToUpper(h.Type().Name)

	m.mu.Lock()
	if old, ok := m.handlers[key]; ok {
		for i, o := range m.order {
			if o == old {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.handlers[key] = h
	m.order = append(m.order, h)
	m.mu.Unlock()

	m.cacheMu.Lock()
	m.fragments.Clear()
	m.cacheMu.Unlock()
}

// Handler returns the handler for a data type.
func (m *Manager) Handler(t schema.DataType) (Handler, error) {
	m.mu.RLock()
	h, ok := m.handlers[strings.ToUpper(t.Name)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t.Name)
	}
	return h, nil
}

// Handlers returns every handler in registration order.
func (m *Manager) Handlers() []Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Handler, len(m.order))
	copy(out, m.order)
	return out
}

// IsLoaded reports whether every side table is ready.
func (m *Manager) IsLoaded() bool {
	for _, h := range m.Handlers() {
		if !h.IsLoaded() {
			return false
		}
	}
	return true
}

// Load creates every side table and binds each handler once its table
// exists.
func (m *Manager) Load(creator TableCreator) {
	for _, h := range m.Handlers() {
		h := h
		creator.CreateTable(h.TableName(), h.Definition()).
			OnSuccess(func(t *schema.Table) {
				h.Bind(t)
				logger.Log.Debug("Compound table loaded", logger.String("table", h.TableName()))
			}).
			OnError(func(msg string) {
				logger.Log.Error("Failed to create compound table",
					logger.String("table", h.TableName()),
					logger.String("error", msg))
			})
	}
}

// SideTable resolves the loaded side table of a compound type.
func (m *Manager) SideTable(t schema.DataType) (*schema.Table, error) {
	h, err := m.Handler(t)
	if err != nil {
		return nil, err
	}
	return h.Table()
}

// Migrations renders every side table as a sql-migrate migration.
func (m *Manager) Migrations() (*migrate.MemoryMigrationSource, error) {
	source := &migrate.MemoryMigrationSource{}
	for i, h := range m.Handlers() {
		ddl, err := schema.CreateTableSQL(h.TableName(), h.Definition(), nil)
		if err != nil {
			return nil, err
		}
		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   fmt.Sprintf("%04d_%s", i+1, h.TableName()),
			Up:   []string{ddl},
			Down: []string{schema.DropTableSQL(h.TableName(), false)},
		})
	}
	return source, nil
}

// Read rebuilds the compound value of column from the current row.
func (m *Manager) Read(row *result.Rows, table *schema.Table, column string) (any, error) {
	col, ok := table.Definition().Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", result.ErrUnknownColumn, table.Name(), column)
	}
	h, err := m.Handler(col.Type)
	if err != nil {
		return nil, err
	}
	v, err := h.Reconstruct(Alias(h, column), row)
	if err != nil {
		logger.Log.Warn("Failed to read compound value",
			logger.String("table", table.Name()),
			logger.String("column", column),
			logger.Err(err))
		return nil, err
	}
	return v, nil
}
