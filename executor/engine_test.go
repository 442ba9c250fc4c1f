package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"sqlq/config"
	"sqlq/database"
	"sqlq/future"
	"sqlq/result"
	"sqlq/schema"
	"sqlq/shared/logger"
	"sqlq/statement"
)

func newTestEngine(t *testing.T, workers int) (*Engine, *database.MySQLDriver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := New(Options{
		Workers:      workers,
		PollInterval: time.Millisecond,
		Logger:       logger.NewNoOpLogger(),
	})
	t.Cleanup(e.Dispose)
	return e, database.NewMySQLDriverFromDB(sqlx.NewDb(db, "mysql"), "test"), mock
}

func await(t *testing.T, e *Engine, f *future.Future[*result.Result]) future.Outcome[*result.Result] {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.Drain()
		if o, ok := f.Outcome(); ok {
			return o
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for future")
	return future.Outcome[*result.Result]{}
}

func stmt(buf *statement.Buffer, db database.Driver, kind statement.Kind, sql string, args ...any) *statement.Finalized {
	buf.Append(sql).Bind(args...).SetKind(kind)
	return buf.FinalizeTo(db)
}

func TestExecuteBatchResultsInOrder(t *testing.T) {
	e, db, mock := newTestEngine(t, 1)

	mock.ExpectExec("UPDATE `players` SET `score`=? WHERE `id`=?").
		WithArgs(10, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT `id`, `score` FROM `players`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "score"}).AddRow(int64(1), int64(10)).AddRow(int64(2), int64(4)))
	mock.ExpectExec("DELETE FROM `players` WHERE `score`<?").
		WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))

	buf := statement.NewBuffer(0)
	stmt(buf, db, statement.Update, "UPDATE `players` SET `score`=? WHERE `id`=?", 10, 1)
	stmt(buf, db, statement.Query, "SELECT `id`, `score` FROM `players`")
	stmt(buf, db, statement.Update, "DELETE FROM `players` WHERE `score`<?", 5)
	batch, err := buf.Batch()
	if err != nil {
		t.Fatalf("Failed to build batch: %v", err)
	}

	if err := e.Execute(batch); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	o := await(t, e, batch.Future())
	if o.Failed {
		t.Fatalf("Expected success, got %s", o.Message)
	}
	if got := o.Value.RowsAffected(); len(got) != 2 || got[0] != 1 || got[1] != 1 {
		t.Errorf("Expected affected [1 1], got %v", got)
	}
	rows := o.Value.FirstQuery()
	if rows == nil || rows.Len() != 2 {
		t.Fatalf("Expected 2 rows")
	}
	rows.Next()
	rows.Next()
	if n, _ := rows.Int64("score"); n != 4 {
		t.Errorf("Expected second score 4, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestBatchFailureStopsAndRollsBack(t *testing.T) {
	e, db, mock := newTestEngine(t, 1)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `a` VALUES (1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `b` VALUES (1)").WillReturnError(errors.New("Table 'b' doesn't exist"))
	mock.ExpectRollback()

	buf := statement.NewBuffer(0)
	buf.StartTransaction(db)
	stmt(buf, db, statement.Update, "INSERT INTO `a` VALUES (1)")
	stmt(buf, db, statement.Update, "INSERT INTO `b` VALUES (1)")
	stmt(buf, db, statement.Update, "INSERT INTO `c` VALUES (1)")
	buf.CommitTransaction(db)
	batch, _ := buf.Batch()

	if err := e.Execute(batch); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	o := await(t, e, batch.Future())
	if !o.Failed || o.Message != "Table 'b' doesn't exist" {
		t.Errorf("Expected failure with driver message, got %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestNestedMarkersCommitOnce(t *testing.T) {
	e, db, mock := newTestEngine(t, 1)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE a SET x=1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE b SET x=1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	buf := statement.NewBuffer(0)
	buf.StartTransaction(db)
	stmt(buf, db, statement.Update, "UPDATE a SET x=1")
	buf.StartTransaction(db)
	stmt(buf, db, statement.Update, "UPDATE b SET x=1")
	buf.CommitTransaction(db)
	buf.CommitTransaction(db)
	batch, _ := buf.Batch()

	if err := e.Execute(batch); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	o := await(t, e, batch.Future())
	if o.Failed {
		t.Fatalf("Expected success, got %s", o.Message)
	}
	if got := o.Value.RowsAffected(); len(got) != 2 || got[1] != 3 {
		t.Errorf("Expected affected [2 3], got %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUnmatchedStartFails(t *testing.T) {
	e, db, mock := newTestEngine(t, 1)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE a SET x=1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	buf := statement.NewBuffer(0)
	buf.StartTransaction(db)
	stmt(buf, db, statement.Update, "UPDATE a SET x=1")
	batch, _ := buf.Batch()

	if err := e.Execute(batch); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if o := await(t, e, batch.Future()); !o.Failed {
		t.Errorf("Expected failure for unmatched transaction start")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestTransactionSuccess(t *testing.T) {
	e, db, mock := newTestEngine(t, 2)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `sqlq_vectors` (`isNull`) VALUES (?);").WithArgs(true).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("SET @v1=LAST_INSERT_ID();").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `players` (`pos`) VALUES (@v1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT LAST_INSERT_ID()").WillReturnRows(sqlmock.NewRows([]string{"LAST_INSERT_ID()"}).AddRow(int64(1)))
	mock.ExpectCommit()

	tx := statement.NewTransaction(db, e)
	buf := statement.NewBuffer(0)
	side1 := stmt(buf, db, statement.Update, "INSERT INTO `sqlq_vectors` (`isNull`) VALUES (?);", true)
	side2 := stmt(buf, db, statement.Update, "SET @v1=LAST_INSERT_ID();")
	main := stmt(buf, db, statement.Update, "INSERT INTO `players` (`pos`) VALUES (@v1)")
	f1, err := tx.AppendStatements([]*statement.Finalized{side1, side2, main})
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	f2, err := tx.Append(stmt(buf, db, statement.Query, "SELECT LAST_INSERT_ID()"))
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	f2.OnSuccess(func(r *result.Result) {
		for r.FirstQuery().Next() {
		}
	})

	agg, err := tx.Execute()
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	o := await(t, e, agg)
	if o.Failed {
		t.Fatalf("Expected success, got %s", o.Message)
	}
	if len(o.Value.RowsAffected()) != 3 || len(o.Value.Queries()) != 1 {
		t.Fatalf("Expected union of 3 updates and 1 query, got %v and %d", o.Value.RowsAffected(), len(o.Value.Queries()))
	}
	if !o.Value.FirstQuery().Next() {
		t.Errorf("Expected the aggregate row set to start before the first row")
	}

	o1, _ := f1.Outcome()
	o2, _ := f2.Outcome()
	if o1.Failed || len(o1.Value.RowsAffected()) != 3 {
		t.Errorf("Expected first batch to succeed with 3 counts, got %+v", o1)
	}
	if o2.Failed || !o2.Value.HasQueryResults() {
		t.Errorf("Expected second batch to succeed with a query, got %+v", o2)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestTransactionFailureFailsEveryFuture(t *testing.T) {
	e, db, mock := newTestEngine(t, 1)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE a SET x=1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE b SET x=1").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	tx := statement.NewTransaction(db, e)
	buf := statement.NewBuffer(0)
	f1, _ := tx.Append(stmt(buf, db, statement.Update, "UPDATE a SET x=1"))
	f2, _ := tx.Append(stmt(buf, db, statement.Update, "UPDATE b SET x=1"))
	f3, _ := tx.Append(stmt(buf, db, statement.Update, "UPDATE c SET x=1"))

	agg, err := tx.Execute()
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	o := await(t, e, agg)
	if !o.Failed || o.Message != "lock wait timeout" {
		t.Errorf("Expected aggregate failure, got %+v", o)
	}
	for i, f := range []*future.Future[*result.Result]{f1, f2, f3} {
		bo, ok := f.Outcome()
		if !ok || !bo.Failed || bo.Message != "lock wait timeout" {
			t.Errorf("Expected batch %d to fail with the same message, got %+v", i, bo)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestDeliveryWaitsForDrain(t *testing.T) {
	e, db, mock := newTestEngine(t, 1)
	mock.ExpectExec("UPDATE a SET x=1").WillReturnResult(sqlmock.NewResult(0, 1))

	buf := statement.NewBuffer(0)
	stmt(buf, db, statement.Update, "UPDATE a SET x=1")
	batch, _ := buf.Batch()

	var called atomic.Bool
	batch.Future().OnSuccess(func(*result.Result) { called.Store(true) })
	if err := e.Execute(batch); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.Stats().Pending == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if called.Load() {
		t.Errorf("Expected no callback before Drain")
	}
	if n := e.Drain(); n != 1 {
		t.Errorf("Expected 1 delivered unit, got %d", n)
	}
	if !called.Load() {
		t.Errorf("Expected callback during Drain")
	}
}

func TestDisposeRejectsSubmissions(t *testing.T) {
	e, db, _ := newTestEngine(t, 2)
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("Failed to shut down: %v", err)
	}

	buf := statement.NewBuffer(0)
	stmt(buf, db, statement.Update, "UPDATE a SET x=1")
	batch, _ := buf.Batch()
	if err := e.Execute(batch); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed, got %v", err)
	}

	tx := statement.NewTransaction(db, e)
	tx.Append(stmt(buf, db, statement.Update, "UPDATE b SET x=1"))
	if _, err := tx.Execute(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed from transaction, got %v", err)
	}
	if !e.Stats().Disposed {
		t.Errorf("Expected stats to report disposed")
	}
}

func TestRejectsEmptyAndTemporary(t *testing.T) {
	e, db, _ := newTestEngine(t, 1)

	if err := e.Execute(statement.NewBatch(db)); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("Expected ErrEmptyBatch, got %v", err)
	}

	temp := schema.NewTable("scratch", schema.NewDefinition(schema.Col("v", schema.Int)).Temporary(), db)
	buf := statement.NewBuffer(0)
	buf.Append("INSERT INTO `scratch` VALUES (1)")
	buf.Finalize(temp)
	batch, _ := buf.Batch()
	if err := e.Execute(batch); !errors.Is(err, ErrTemporaryTable) {
		t.Errorf("Expected ErrTemporaryTable, got %v", err)
	}
}

func TestPolicies(t *testing.T) {
	var counter atomic.Uint64
	depths := []int{3, 1, 1, 4}

	var got []int
	for i := 0; i < 5; i++ {
		got = append(got, RoundRobin.pick(depths, &counter))
	}
	want := []int{0, 1, 2, 3, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected round robin %v, got %v", want, got)
			break
		}
	}

	if idx := ShortestQueue.pick(depths, &counter); idx != 1 {
		t.Errorf("Expected shortest queue 1, got %d", idx)
	}

	if _, err := ParsePolicy("random"); err == nil {
		t.Errorf("Expected error for unknown policy")
	}
	opts, err := OptionsFromConfig(config.Default().Engine)
	if err != nil {
		t.Fatalf("Failed to map config: %v", err)
	}
	if opts.Workers != 4 || opts.PollInterval != 20*time.Millisecond || opts.Policy != RoundRobin {
		t.Errorf("Unexpected options: %+v", opts)
	}
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Submitted.WithLabelValues("batch").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "sqlq_engine_units_submitted_total" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected sqlq_engine_units_submitted_total to be registered")
	}
}

func TestSingleWorkerCompletesInSubmissionOrder(t *testing.T) {
	e, db, mock := newTestEngine(t, 1)

	for i := 1; i <= 3; i++ {
		mock.ExpectExec("UPDATE `players` SET `score`=? WHERE `id`=?").
			WithArgs(i*10, i).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	var delivered []int
	var last *statement.Batch
	for i := 1; i <= 3; i++ {
		i := i
		buf := statement.NewBuffer(0)
		stmt(buf, db, statement.Update, "UPDATE `players` SET `score`=? WHERE `id`=?", i*10, i)
		batch, err := buf.Batch()
		if err != nil {
			t.Fatalf("Failed to build batch: %v", err)
		}
		batch.Future().OnSuccess(func(*result.Result) {
			delivered = append(delivered, i)
		})
		if err := e.Execute(batch); err != nil {
			t.Fatalf("Failed to submit: %v", err)
		}
		last = batch
	}

	if o := await(t, e, last.Future()); o.Failed {
		t.Fatalf("Expected success, got %s", o.Message)
	}
	if len(delivered) != 3 || delivered[0] != 1 || delivered[1] != 2 || delivered[2] != 3 {
		t.Errorf("Expected delivery order [1 2 3], got %v", delivered)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRunDefaultsInterval(t *testing.T) {
	e, _, _ := newTestEngine(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.Run(ctx, 0)
}
