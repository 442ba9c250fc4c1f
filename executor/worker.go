package executor

import (
	"context"
	"sync"
	"time"

	"sqlq/shared/logger"
)

// worker owns a private FIFO. It empties the queue, runs each unit in order
// and hands the finished units to the engine's completion queue in one push.
type worker struct {
	id     int
	engine *Engine
	log    logger.Logger

	mu    sync.Mutex
	queue []task
}

func (w *worker) push(t task) {
	w.mu.Lock()
	w.queue = append(w.queue, t)
	depth := len(w.queue)
	w.mu.Unlock()
	w.engine.metrics.QueueDepth.WithLabelValues(workerLabel(w.id)).Set(float64(depth))
}

func (w *worker) depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *worker) take() []task {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil
	}
	pending := w.queue
	w.queue = nil
	return pending
}

func (w *worker) run(ctx context.Context, stop <-chan struct{}, poll time.Duration) {
	defer w.engine.wg.Done()
	w.log.Debug("Worker started")

	for {
		if pending := w.take(); len(pending) > 0 {
			w.engine.metrics.QueueDepth.WithLabelValues(workerLabel(w.id)).Set(0)
			for _, t := range pending {
				w.execute(ctx, t)
			}
			w.engine.complete(pending)
		}

		select {
		case <-stop:
			w.log.Debug("Worker stopped")
			return
		case <-time.After(poll):
		}
	}
}

func (w *worker) execute(ctx context.Context, t task) {
	start := time.Now()
	t.execute(ctx, w.engine, w.log)
	elapsed := time.Since(start)

	outcome := "success"
	if t.failed() {
		outcome = "failure"
	}
	w.engine.metrics.Duration.WithLabelValues(t.kind()).Observe(elapsed.Seconds())
	w.engine.metrics.Completed.WithLabelValues(t.kind(), outcome).Inc()
	w.engine.recordOutcome(ctx, t, elapsed)
}
