package executor

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"sqlq/database"
	"sqlq/result"
	"sqlq/shared/logger"
	"sqlq/statement"
)

// task is a queued unit of work. execute runs on a worker goroutine and
// only records the outcome; deliver resolves futures and runs on the
// draining goroutine.
type task interface {
	kind() string
	execute(ctx context.Context, e *Engine, log logger.Logger)
	deliver()
	failed() bool
}

type batchTask struct {
	batch  *statement.Batch
	result *result.Result
	errMsg string
	err    bool
}

func (t *batchTask) kind() string { return "batch" }
func (t *batchTask) failed() bool { return t.err }

func (t *batchTask) execute(ctx context.Context, e *Engine, log logger.Logger) {
	ctx, span := e.tracer.Start(ctx, "sqlq.batch")
	span.SetAttributes(attribute.Int("sqlq.statements", t.batch.Len()))
	defer span.End()

	res, err := runUnit(ctx, t.batch.Driver(), log, func(s *database.Session) (*result.Result, error) {
		res, err := runBatch(ctx, s, t.batch, 0, log)
		if err == nil && !s.AutoCommit() {
			log.Warn("Batch left a transaction open, rolling back",
				logger.Int("statements", t.batch.Len()))
			if rbErr := s.Rollback(); rbErr != nil {
				log.Warn("Failed to roll back", logger.Err(rbErr))
			}
			return nil, errors.New("transaction start without matching commit")
		}
		return res, err
	})
	if err != nil {
		t.err, t.errMsg = true, err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, t.errMsg)
		return
	}
	t.result = res
}

func (t *batchTask) deliver() {
	if t.err {
		t.batch.Future().Failure(t.errMsg)
		return
	}
	t.batch.Future().Success(t.result)
}

type transactionTask struct {
	tx      *statement.Transaction
	batches []*statement.Batch
	results []*result.Result
	errMsg  string
	err     bool
}

func (t *transactionTask) kind() string { return "transaction" }
func (t *transactionTask) failed() bool { return t.err }

func (t *transactionTask) execute(ctx context.Context, e *Engine, log logger.Logger) {
	ctx, span := e.tracer.Start(ctx, "sqlq.transaction")
	span.SetAttributes(attribute.Int("sqlq.batches", len(t.batches)))
	defer span.End()

	_, err := runUnit(ctx, t.tx.Driver(), log, func(s *database.Session) (*result.Result, error) {
		if err := s.Begin(ctx); err != nil {
			return nil, err
		}
		t.results = make([]*result.Result, 0, len(t.batches))
		for _, b := range t.batches {
			res, err := runBatch(ctx, s, b, 1, log)
			if err != nil {
				return nil, err
			}
			t.results = append(t.results, res)
		}
		if err := s.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		t.err, t.errMsg = true, err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, t.errMsg)
	}
}

func (t *transactionTask) deliver() {
	if t.err {
		for _, b := range t.batches {
			b.Future().Failure(t.errMsg)
		}
		t.tx.Future().Failure(t.errMsg)
		return
	}

	all := result.New()
	for i, b := range t.batches {
		b.Future().Success(t.results[i])
		all.Merge(t.results[i])
	}
	// batch subscribers share these row sets
	for _, rows := range all.Queries() {
		rows.Reset()
	}
	t.tx.Future().Success(all)
}

// runUnit pins a session for the duration of fn.
func runUnit(ctx context.Context, db database.Driver, log logger.Logger, fn func(*database.Session) (*result.Result, error)) (*result.Result, error) {
	s, err := db.Session(ctx)
	if err != nil {
		log.Error("Failed to acquire session", logger.Err(err))
		return nil, err
	}
	defer s.Close()
	return fn(s)
}

// runBatch executes statements in order on s. depth is the transaction
// nesting level the batch starts at; only a commit that brings it back to
// zero commits. On the first error an open transaction is rolled back and
// the remaining statements are skipped.
func runBatch(ctx context.Context, s *database.Session, b *statement.Batch, depth int, log logger.Logger) (*result.Result, error) {
	res := result.New()
	for _, st := range b.Statements() {
		var err error
		switch st.Kind() {
		case statement.TransactionStart:
			depth++
			if s.AutoCommit() {
				err = s.Begin(ctx)
			}
		case statement.TransactionCommit:
			depth--
			if depth <= 0 && !s.AutoCommit() {
				err = s.Commit()
			}
		case statement.Query:
			var rows *result.Rows
			rows, err = query(ctx, s, st)
			if err == nil {
				res.AddQuery(rows)
			}
		default:
			var n int64
			n, err = exec(ctx, s, st)
			if err == nil {
				res.AddUpdate(n)
			}
		}

		if err != nil {
			logStatementError(log, st, err)
			if !s.AutoCommit() {
				if rbErr := s.Rollback(); rbErr != nil {
					log.Warn("Failed to roll back", logger.Err(rbErr))
				}
			}
			return nil, err
		}
	}
	return res, nil
}

func query(ctx context.Context, s *database.Session, st *statement.Finalized) (*result.Rows, error) {
	rows, err := s.Query(ctx, st.SQL(), st.Args()...)
	if err != nil {
		return nil, err
	}
	return result.Materialize(rows, st.Columns())
}

func exec(ctx context.Context, s *database.Session, st *statement.Finalized) (int64, error) {
	r, err := s.Exec(ctx, st.SQL(), st.Args()...)
	if err != nil {
		return 0, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		// SET and DDL statements do not report a count
		return 0, nil
	}
	return n, nil
}

func logStatementError(log logger.Logger, st *statement.Finalized, err error) {
	values := make([]string, len(st.Values()))
	for i, v := range st.Values() {
		values[i] = fmt.Sprintf("[%d] %v (%T)", i, v, v)
	}
	fields := []logger.Field{
		logger.String("kind", st.Kind().String()),
		logger.String("sql", st.SQL()),
		logger.Strings("values", values),
		logger.Err(err),
	}
	if st.Table() != nil {
		fields = append(fields, logger.String("table", st.Table().Name()))
	}
	if n, ok := database.ErrorNumber(err); ok {
		fields = append(fields, logger.Int("mysql_error", int(n)))
	}
	log.Warn("Statement failed", fields...)
}
