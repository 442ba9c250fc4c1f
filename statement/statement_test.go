package statement

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sqlq/database"
	"sqlq/schema"
)

type stubDriver struct{ name string }

func (s *stubDriver) Session(context.Context) (*database.Session, error) { return nil, errors.New("stub") }
func (s *stubDriver) Exec(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("stub")
}
func (s *stubDriver) Ping(context.Context) error { return nil }
func (s *stubDriver) Close() error               { return nil }
func (s *stubDriver) DriverName() string         { return s.name }
func (s *stubDriver) Pool() *sqlx.DB             { return nil }

type recordingSubmitter struct {
	submitted []*Transaction
	err       error
}

func (r *recordingSubmitter) ExecuteTransaction(tx *Transaction) error {
	if r.err != nil {
		return r.err
	}
	r.submitted = append(r.submitted, tx)
	return nil
}

func testTable(db database.Driver) *schema.Table {
	return schema.NewTable("players", schema.NewDefinition(
		schema.Col("id", schema.BigInt).Primary().AutoIncr(),
		schema.Col("name", schema.Varchar(16)),
	), db)
}

func TestFinalizeSnapshotsAndResets(t *testing.T) {
	db := &stubDriver{name: "a"}
	table := testTable(db)
	buf := NewBuffer(64)

	if buf.Finalize(table) != nil {
		t.Errorf("Expected empty buffer to finalize to nil")
	}

	buf.Append("SELECT `name` FROM `players` WHERE `id`=?").Bind(int64(4))
	buf.SetKind(Query).SetColumns([]string{"name"}).SetPrefixed(false)
	f := buf.Finalize(table)
	if f == nil {
		t.Fatalf("Expected finalized statement")
	}

	if f.SQL() != "SELECT `name` FROM `players` WHERE `id`=?" {
		t.Errorf("Unexpected SQL: %s", f.SQL())
	}
	if f.Kind() != Query || f.Prefixed() || len(f.Columns()) != 1 {
		t.Errorf("Expected QUERY, unprefixed, 1 column; got %s %v %v", f.Kind(), f.Prefixed(), f.Columns())
	}
	if f.Table() != table || f.Driver() != db {
		t.Errorf("Expected statement bound to table and its database")
	}

	if !buf.Empty() || len(buf.Values()) != 0 || buf.Kind() != Update || buf.Columns() != nil {
		t.Errorf("Expected buffer reset after finalize")
	}

	buf.Append("DELETE FROM `players`").Bind(int64(9))
	if f.Values()[0] != int64(4) {
		t.Errorf("Expected finalized values to be isolated from later binds, got %v", f.Values())
	}
	buf.Finalize(table)
	if len(buf.Finalized()) != 2 {
		t.Errorf("Expected 2 finalized statements, got %d", len(buf.Finalized()))
	}
}

func TestFinalizeWithoutTable(t *testing.T) {
	buf := NewBuffer(0)
	buf.Append("SELECT 1")
	f := buf.Finalize(nil)
	if f == nil {
		t.Fatalf("Expected finalized statement")
	}
	if f.Table() != nil || f.Driver() != nil {
		t.Errorf("Expected statement without table or database")
	}
	if !buf.Empty() {
		t.Errorf("Expected buffer reset after finalize")
	}
	if err := NewBatch(&stubDriver{}).Add(f); !errors.Is(err, ErrDatabaseMismatch) {
		t.Errorf("Expected ErrDatabaseMismatch, got %v", err)
	}
}

func TestTransactionMarkers(t *testing.T) {
	db := &stubDriver{}
	buf := NewBuffer(0)

	buf.StartTransaction(db)
	buf.Append("UPDATE t SET a=1")
	buf.CommitTransaction(db)

	list := buf.Finalized()
	if len(list) != 3 {
		t.Fatalf("Expected 3 statements, got %d", len(list))
	}
	kinds := []Kind{TransactionStart, Update, TransactionCommit}
	for i, k := range kinds {
		if list[i].Kind() != k {
			t.Errorf("Expected %s at %d, got %s", k, i, list[i].Kind())
		}
	}
	if list[0].SQL() != "" || list[0].Table() != nil {
		t.Errorf("Expected bare marker")
	}

	batch, err := buf.Batch()
	if err != nil {
		t.Fatalf("Failed to build batch: %v", err)
	}
	if batch.Len() != 3 || batch.Driver() != db {
		t.Errorf("Expected 3-statement batch on db")
	}
}

func TestStashRestore(t *testing.T) {
	db := &stubDriver{}
	buf := NewBuffer(0)
	buf.Append("INSERT INTO `main` (`pos`) VALUES (").SetKind(Update).SetColumns([]string{"pos"})
	buf.Bind("keep")

	pending := buf.Stash()
	buf.Append("INSERT INTO `side` (`x`) VALUES (?);").Bind(1.5)
	buf.FinalizeTo(db)
	buf.Restore(pending)
	buf.Append("@v)")

	f := buf.FinalizeTo(db)
	if f.SQL() != "INSERT INTO `main` (`pos`) VALUES (@v)" {
		t.Errorf("Unexpected restored SQL: %s", f.SQL())
	}
	if len(f.Values()) != 1 || f.Values()[0] != "keep" {
		t.Errorf("Expected restored values [keep], got %v", f.Values())
	}
	if len(f.Columns()) != 1 {
		t.Errorf("Expected restored columns, got %v", f.Columns())
	}
	if buf.Finalized()[0].SQL() != "INSERT INTO `side` (`x`) VALUES (?);" {
		t.Errorf("Expected side statement first")
	}
}

type material int

func (m material) SQLName() string { return [...]string{"STONE", "GOLD"}[m] }

func TestArgsEncoding(t *testing.T) {
	id := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	now := time.Now()
	buf := NewBuffer(0)
	buf.Append("?,?,?,?,?,?").Bind(id, now, material(1), nil, 1500*time.Millisecond, Update)
	args := buf.FinalizeTo(&stubDriver{}).Args()

	b, ok := args[0].([]byte)
	if !ok || len(b) != 16 || b[0] != 0x00 || b[15] != 0xff {
		t.Errorf("Expected 16 big-endian bytes, got %v", args[0])
	}
	if args[1] != now {
		t.Errorf("Expected time to pass through, got %v", args[1])
	}
	if args[2] != "GOLD" {
		t.Errorf("Expected named value to bind by name, got %v", args[2])
	}
	if args[3] != nil {
		t.Errorf("Expected nil to pass through, got %v", args[3])
	}
	if d, ok := args[4].(time.Duration); !ok || d != 1500*time.Millisecond {
		t.Errorf("Expected duration to pass through unchanged, got %v (%T)", args[4], args[4])
	}
	if k, ok := args[5].(Kind); !ok || k != Update {
		t.Errorf("Expected Stringer to pass through unchanged, got %v (%T)", args[5], args[5])
	}
}

func TestBatchRejectsOtherDatabase(t *testing.T) {
	a, b := &stubDriver{name: "a"}, &stubDriver{name: "b"}
	buf := NewBuffer(0)
	buf.Append("SELECT 1")
	other := buf.FinalizeTo(b)

	batch := NewBatch(a)
	if err := batch.Add(other); !errors.Is(err, ErrDatabaseMismatch) {
		t.Errorf("Expected ErrDatabaseMismatch, got %v", err)
	}
	if err := batch.Add(nil); !errors.Is(err, ErrNilStatement) {
		t.Errorf("Expected ErrNilStatement, got %v", err)
	}
	if _, err := NewBuffer(0).Batch(); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("Expected ErrEmptyBatch, got %v", err)
	}
}

func TestTransactionAppendAndExecute(t *testing.T) {
	db := &stubDriver{}
	sub := &recordingSubmitter{}
	tx := NewTransaction(db, sub)

	buf := NewBuffer(0)
	buf.Append("UPDATE a SET x=1")
	f1, err := tx.Append(buf.FinalizeTo(db))
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	buf.Append("UPDATE b SET x=1")
	s2 := buf.FinalizeTo(db)
	buf.Append("UPDATE c SET x=1")
	s3 := buf.FinalizeTo(db)
	f2, err := tx.AppendStatements([]*Finalized{s2, s3})
	if err != nil {
		t.Fatalf("Failed to append statements: %v", err)
	}

	if f1 == f2 || f1 == tx.Future() {
		t.Errorf("Expected distinct futures per appended unit")
	}
	if tx.Len() != 2 || tx.Batches()[1].Len() != 2 {
		t.Errorf("Expected 2 batches with the second holding 2 statements")
	}

	agg, err := tx.Execute()
	if err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}
	if agg != tx.Future() || len(sub.submitted) != 1 {
		t.Errorf("Expected transaction submitted once with its aggregate future")
	}
	if _, err := tx.Execute(); !errors.Is(err, ErrSubmitted) {
		t.Errorf("Expected ErrSubmitted, got %v", err)
	}
	buf.Append("UPDATE d SET x=1")
	if _, err := tx.Append(buf.FinalizeTo(db)); !errors.Is(err, ErrSubmitted) {
		t.Errorf("Expected append after submit to fail, got %v", err)
	}
}

func TestTransactionSubmitFailure(t *testing.T) {
	sub := &recordingSubmitter{err: errors.New("engine disposed")}
	tx := NewTransaction(&stubDriver{}, sub)
	if _, err := tx.Execute(); err == nil || err.Error() != "engine disposed" {
		t.Errorf("Expected submitter error, got %v", err)
	}
	if _, err := NewTransaction(&stubDriver{}, nil).Execute(); !errors.Is(err, ErrNoSubmitter) {
		t.Errorf("Expected ErrNoSubmitter, got %v", err)
	}
}

func TestCreateTempTable(t *testing.T) {
	db := &stubDriver{}
	tx := NewTransaction(db, &recordingSubmitter{})
	table, _, err := tx.CreateTempTable("scratch", schema.NewDefinition(schema.Col("v", schema.Int)))
	if err != nil {
		t.Fatalf("Failed to create temp table: %v", err)
	}
	if !table.Temporary() {
		t.Errorf("Expected temporary table")
	}
	sql := tx.Batches()[0].Statements()[0].SQL()
	if sql != "CREATE TEMPORARY TABLE IF NOT EXISTS `scratch` (`v` INT NOT NULL) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;" {
		t.Errorf("Unexpected DDL: %s", sql)
	}
}

func TestSizeTracker(t *testing.T) {
	tr := NewSizeTracker(100, 25)
	for i := 0; i < 24; i++ {
		tr.Register(200)
	}
	if tr.Size() != 100 {
		t.Errorf("Expected size unchanged before window fills, got %d", tr.Size())
	}
	tr.Register(200)
	// (0 + 25*200) / 26 = 192, largest 200
	if tr.Size() != 200 {
		t.Errorf("Expected 200, got %d", tr.Size())
	}
	for i := 0; i < 25; i++ {
		tr.Register(50)
	}
	// (192 + 25*50) / 26 = 55, largest 50
	if tr.Size() != 55 {
		t.Errorf("Expected 55, got %d", tr.Size())
	}
}

func TestTrackersInitOnFirstUse(t *testing.T) {
	set := NewTrackers(100, 25)
	a := set.For(ShapeInsert)
	if a != set.For(ShapeInsert) {
		t.Errorf("Expected the same tracker for the same shape")
	}
	if a == set.For(ShapeDelete) {
		t.Errorf("Expected distinct trackers per shape")
	}
	if a.Size() != 100 {
		t.Errorf("Expected initial size 100, got %d", a.Size())
	}
}
