// Package executor runs batches and transactions on a fixed set of worker
// goroutines. Submission never blocks on the database. Results are held
// until the host calls Drain, which resolves every completed future on the
// caller's goroutine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"sqlq/config"
	"sqlq/shared/logger"
	"sqlq/statement"
)

var (
	ErrDisposed       = errors.New("engine is disposed")
	ErrEmptyBatch     = errors.New("batch has no statements")
	ErrTemporaryTable = errors.New("statements on temporary tables must run inside a transaction")
)

// Options configure an engine.
type Options struct {
	Workers      int
	PollInterval time.Duration
	Policy       Policy
	Metrics      *Metrics
	Logger       logger.Logger
}

// DefaultOptions returns four workers polling every 20ms, round robin.
func DefaultOptions() Options {
	return Options{
		Workers:      4,
		PollInterval: 20 * time.Millisecond,
		Policy:       RoundRobin,
	}
}

// OptionsFromConfig maps engine configuration onto options.
func OptionsFromConfig(cfg config.EngineConfig) (Options, error) {
	policy, err := ParsePolicy(cfg.Assignment)
	if err != nil {
		return Options{}, err
	}
	opts := DefaultOptions()
	opts.Policy = policy
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	if cfg.PollInterval > 0 {
		opts.PollInterval = cfg.PollInterval
	}
	return opts, nil
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Workers     int    `json:"workers"`
	Policy      string `json:"policy"`
	QueueDepths []int  `json:"queue_depths"`
	Pending     int    `json:"pending_completions"`
	Submitted   uint64 `json:"submitted"`
	Succeeded   uint64 `json:"succeeded"`
	Failed      uint64 `json:"failed"`
	Delivered   uint64 `json:"delivered"`
	Disposed    bool   `json:"disposed"`
}

// Engine is the multi-worker execution engine.
type Engine struct {
	workers []*worker
	policy  Policy
	counter atomic.Uint64

	compMu    sync.Mutex
	completed []task

	disposed atomic.Bool
	stop     chan struct{}
	wg       sync.WaitGroup

	metrics  *Metrics
	tracer   trace.Tracer
	duration metric.Float64Histogram
	log      logger.Logger

	submitted atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	delivered atomic.Uint64
}

// New starts an engine.
func New(opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Millisecond
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Log
	}

	e := &Engine{
		policy:  opts.Policy,
		stop:    make(chan struct{}),
		metrics: opts.Metrics,
		tracer:  otel.Tracer("sqlq/executor"),
		log:     opts.Logger,
	}
	duration, err := otel.Meter("sqlq/executor").Float64Histogram("sqlq.unit.duration",
		metric.WithDescription("Time spent executing a unit of work"),
		metric.WithUnit("s"))
	if err != nil {
		e.log.Warn("Failed to create duration histogram", logger.Err(err))
	}
	e.duration = duration

	// disposal never cancels a running statement
	ctx := context.Background()
	for i := 0; i < opts.Workers; i++ {
		w := &worker{
			id:     i,
			engine: e,
			log:    opts.Logger.With(logger.Int("worker", i)),
		}
		e.workers = append(e.workers, w)
		e.wg.Add(1)
		go w.run(ctx, e.stop, opts.PollInterval)
	}

	e.log.Info("Execution engine started",
		logger.Int("workers", opts.Workers),
		logger.Duration("poll_interval", opts.PollInterval),
		logger.String("policy", opts.Policy.String()))
	return e
}

// Execute queues a batch. The batch future resolves during a later Drain.
func (e *Engine) Execute(b *statement.Batch) error {
	if b == nil || b.Len() == 0 {
		return ErrEmptyBatch
	}
	if b.Temporary() {
		return ErrTemporaryTable
	}
	return e.submit(&batchTask{batch: b})
}

// ExecuteTransaction queues a transaction. Every batch future and the
// transaction future resolve during a later Drain.
func (e *Engine) ExecuteTransaction(tx *statement.Transaction) error {
	batches := tx.Batches()
	if len(batches) == 0 {
		return fmt.Errorf("transaction: %w", ErrEmptyBatch)
	}
	return e.submit(&transactionTask{tx: tx, batches: batches})
}

func (e *Engine) submit(t task) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	depths := make([]int, len(e.workers))
	if e.policy == ShortestQueue {
		for i, w := range e.workers {
			depths[i] = w.depth()
		}
	}
	w := e.workers[e.policy.pick(depths, &e.counter)]
	w.push(t)

	e.submitted.Add(1)
	e.metrics.Submitted.WithLabelValues(t.kind()).Inc()
	return nil
}

func (e *Engine) complete(done []task) {
	e.compMu.Lock()
	e.completed = append(e.completed, done...)
	n := len(e.completed)
	e.compMu.Unlock()
	e.metrics.Pending.Set(float64(n))
}

func (e *Engine) recordOutcome(ctx context.Context, t task, elapsed time.Duration) {
	if t.failed() {
		e.failed.Add(1)
	} else {
		e.succeeded.Add(1)
	}
	if e.duration != nil {
		e.duration.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(attribute.String("kind", t.kind()), attribute.Bool("failed", t.failed())))
	}
}

// Drain resolves the futures of every unit completed since the last call,
// on the calling goroutine, and returns how many units were delivered.
func (e *Engine) Drain() int {
	e.compMu.Lock()
	done := e.completed
	e.completed = nil
	e.compMu.Unlock()

	if len(done) == 0 {
		return 0
	}
	e.metrics.Pending.Set(0)
	for _, t := range done {
		t.deliver()
	}
	e.delivered.Add(uint64(len(done)))
	return len(done)
}

// Run drains on every tick until ctx is done. A non-positive interval
// drains every 50ms.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.Drain()
			return
		case <-ticker.C:
			e.Drain()
		}
	}
}

// Dispose rejects further submissions and stops the workers. Units still
// queued are abandoned; a statement already running completes but its
// result is never delivered unless Drain is called again.
func (e *Engine) Dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}
	close(e.stop)
	e.log.Info("Execution engine disposed")
}

// Shutdown disposes the engine and waits for workers to exit or ctx to end.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Dispose()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disposed reports whether Dispose has been called.
func (e *Engine) Disposed() bool {
	return e.disposed.Load()
}

// Stats returns queue depths and counters.
func (e *Engine) Stats() Stats {
	depths := make([]int, len(e.workers))
	for i, w := range e.workers {
		depths[i] = w.depth()
	}
	e.compMu.Lock()
	pending := len(e.completed)
	e.compMu.Unlock()

	return Stats{
		Workers:     len(e.workers),
		Policy:      e.policy.String(),
		QueueDepths: depths,
		Pending:     pending,
		Submitted:   e.submitted.Load(),
		Succeeded:   e.succeeded.Load(),
		Failed:      e.failed.Load(),
		Delivered:   e.delivered.Load(),
		Disposed:    e.disposed.Load(),
	}
}
