// Package provider assembles a MySQL-backed statement layer: one database
// pool, an explicit type registry, the compound handlers and their side
// tables, the execution engine, and the builders that feed it.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sqlq/builder"
	"sqlq/compound"
	"sqlq/config"
	"sqlq/database"
	"sqlq/executor"
	"sqlq/future"
	"sqlq/result"
	"sqlq/schema"
	"sqlq/shared/logger"
	"sqlq/statement"
)

// Provider is the entry point for applications.
type Provider struct {
	db       database.Driver
	types    *schema.TypeRegistry
	compound *compound.Manager
	engine   *executor.Engine
	trackers *statement.Trackers
	env      *builder.Env
	drain    time.Duration
	log      logger.Logger

	mu      sync.Mutex
	tables  map[string]*schema.Table
	pending map[string]*future.Future[*schema.Table]
}

// Option customizes a provider.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	manager    *compound.Manager
	log        logger.Logger
}

// WithRegisterer registers engine metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithCompoundManager replaces the default compound handlers.
func WithCompoundManager(m *compound.Manager) Option {
	return func(o *options) { o.manager = m }
}

// WithLogger sets the logger used by the provider and its engine.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Open connects to MySQL and builds a provider from configuration.
func Open(cfg config.Config, opts ...Option) (*Provider, error) {
	db, err := database.NewMySQLDriver(cfg.Database)
	if err != nil {
		return nil, err
	}
	p, err := New(db, cfg.Engine, opts...)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			logger.Log.Warn("Failed to close database", logger.Err(cerr))
		}
		return nil, err
	}
	return p, nil
}

// New builds a provider on an existing driver and starts creating the
// compound side tables.
func New(db database.Driver, cfg config.EngineConfig, opts ...Option) (*Provider, error) {
	o := options{log: logger.Log}
	for _, opt := range opts {
		opt(&o)
	}
	if o.manager == nil {
		o.manager = compound.NewDefaultManager()
	}

	engineOpts, err := executor.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	engineOpts.Metrics = executor.NewMetrics(o.registerer)
	engineOpts.Logger = o.log

	initial, samples := cfg.TrackerInitial, cfg.TrackerSamples
	if initial <= 0 {
		initial = 100
	}
	if samples <= 0 {
		samples = 25
	}

	p := &Provider{
		db:       db,
		types:    schema.NewTypeRegistry(),
		compound: o.manager,
		trackers: statement.NewTrackers(initial, samples),
		drain:    cfg.DrainInterval,
		log:      o.log,
		tables:   make(map[string]*schema.Table),
		pending:  make(map[string]*future.Future[*schema.Table]),
	}
	for _, h := range p.compound.Handlers() {
		p.types.Register(h.Type())
	}

	p.engine = executor.New(engineOpts)
	p.env = &builder.Env{Compound: p.compound, Trackers: p.trackers, Engine: p.engine}
	p.compound.Load(p)
	return p, nil
}

func (p *Provider) Driver() database.Driver       { return p.db }
func (p *Provider) Types() *schema.TypeRegistry   { return p.types }
func (p *Provider) Compound() *compound.Manager   { return p.compound }
func (p *Provider) Engine() *executor.Engine      { return p.engine }
func (p *Provider) Trackers() *statement.Trackers { return p.trackers }

// IsLoaded reports whether every compound side table exists.
func (p *Provider) IsLoaded() bool {
	return p.compound.IsLoaded()
}

// Column resolves a column definition from a registered type name.
func (p *Provider) Column(name, typeName string) (schema.Column, error) {
	t, ok := p.types.Lookup(typeName)
	if !ok {
		return schema.Column{}, fmt.Errorf("%w: %s", compound.ErrUnsupportedType, typeName)
	}
	return schema.Col(name, t), nil
}

// Table returns a created table.
func (p *Provider) Table(name string) (*schema.Table, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tables[name]
	return t, ok
}

// Insert starts an INSERT builder.
func (p *Provider) Insert(t *schema.Table, columns ...string) *builder.Insert {
	return builder.NewInsert(p.env, t, columns...)
}

// Update starts an UPDATE builder.
func (p *Provider) Update(t *schema.Table) *builder.Update {
	return builder.NewUpdate(p.env, t)
}

// Select starts a SELECT builder.
func (p *Provider) Select(t *schema.Table, columns ...string) *builder.Select {
	return builder.NewSelect(p.env, t, columns...)
}

// Delete starts a DELETE builder.
func (p *Provider) Delete(t *schema.Table) *builder.Delete {
	return builder.NewDelete(p.env, t)
}

// Transaction creates an empty transaction on the provider's database.
func (p *Provider) Transaction() *statement.Transaction {
	return statement.NewTransaction(p.db, p.engine)
}

// Execute queues a batch.
func (p *Provider) Execute(b *statement.Batch) error {
	return p.engine.Execute(b)
}

// ReadCompound rebuilds a compound column value from the current row.
func (p *Provider) ReadCompound(rows *result.Rows, t *schema.Table, column string) (any, error) {
	return p.compound.Read(rows, t, column)
}

// Drain delivers completed results on the calling goroutine.
func (p *Provider) Drain() int {
	return p.engine.Drain()
}

// Run drains on the configured interval until ctx is done.
func (p *Provider) Run(ctx context.Context) {
	interval := p.drain
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	p.engine.Run(ctx, interval)
}

// Ping checks the database.
func (p *Provider) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close stops the engine and closes the pool. Close failures are logged.
func (p *Provider) Close(ctx context.Context) {
	if err := p.engine.Shutdown(ctx); err != nil {
		p.log.Warn("Engine did not stop cleanly", logger.Err(err))
	}
	if err := p.db.Close(); err != nil {
		p.log.Warn("Failed to close database", logger.Err(err))
	}
}

// Stats reports the engine's state.
func (p *Provider) Stats() executor.Stats {
	return p.engine.Stats()
}
