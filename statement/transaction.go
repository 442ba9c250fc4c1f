package statement

import (
	"errors"
	"sync"

	"sqlq/database"
	"sqlq/future"
	"sqlq/result"
	"sqlq/schema"
)

var (
	ErrSubmitted   = errors.New("transaction already submitted")
	ErrNoSubmitter = errors.New("transaction has no executor")
)

// Submitter queues a transaction for execution.
type Submitter interface {
	ExecuteTransaction(tx *Transaction) error
}

// Transaction is an ordered list of batches that commit or roll back
// together. Each appended unit keeps its own future; the transaction future
// carries the union of all results.
type Transaction struct {
	mu        sync.Mutex
	db        database.Driver
	submitter Submitter
	batches   []*Batch
	future    *future.Future[*result.Result]
	submitted bool
}

// NewTransaction creates an empty transaction on db.
func NewTransaction(db database.Driver, submitter Submitter) *Transaction {
	return &Transaction{
		db:        db,
		submitter: submitter,
		future:    future.New[*result.Result](),
	}
}

// Append adds one statement as its own batch.
func (t *Transaction) Append(s *Finalized) (*future.Future[*result.Result], error) {
	if s == nil {
		return nil, ErrNilStatement
	}
	return t.AppendBatch(NewBatch(s.db, s))
}

// AppendStatements adds a list of statements as one batch.
func (t *Transaction) AppendStatements(list []*Finalized) (*future.Future[*result.Result], error) {
	if len(list) == 0 {
		return nil, ErrEmptyBatch
	}
	b := NewBatch(list[0].db)
	for _, s := range list {
		if err := b.Add(s); err != nil {
			return nil, err
		}
	}
	return t.AppendBatch(b)
}

// AppendBatch adds an existing batch.
func (t *Transaction) AppendBatch(b *Batch) (*future.Future[*result.Result], error) {
	if b.db != t.db {
		return nil, ErrDatabaseMismatch
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitted {
		return nil, ErrSubmitted
	}
	t.batches = append(t.batches, b)
	return b.future, nil
}

// CreateTempTable appends the DDL for a temporary table. The table only
// exists for the duration of the transaction's connection.
func (t *Transaction) CreateTempTable(name string, def *schema.Definition) (*schema.Table, *future.Future[*result.Result], error) {
	def.Temporary()
	ddl, err := schema.CreateTableSQL(name, def, nil)
	if err != nil {
		return nil, nil, err
	}
	buf := NewBuffer(len(ddl))
	buf.Append(ddl)
	f, err := t.Append(buf.FinalizeTo(t.db))
	if err != nil {
		return nil, nil, err
	}
	return schema.NewTable(name, def, t.db), f, nil
}

// Execute submits the transaction. It can only be submitted once.
func (t *Transaction) Execute() (*future.Future[*result.Result], error) {
	if t.submitter == nil {
		return nil, ErrNoSubmitter
	}
	t.mu.Lock()
	if t.submitted {
		t.mu.Unlock()
		return nil, ErrSubmitted
	}
	t.submitted = true
	t.mu.Unlock()

	if err := t.submitter.ExecuteTransaction(t); err != nil {
		t.mu.Lock()
		t.submitted = false
		t.mu.Unlock()
		return nil, err
	}
	return t.future, nil
}

// Batches returns a snapshot of the appended batches.
func (t *Transaction) Batches() []*Batch {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Batch, len(t.batches))
	copy(out, t.batches)
	return out
}

func (t *Transaction) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.batches)
}

func (t *Transaction) Driver() database.Driver                { return t.db }
func (t *Transaction) Future() *future.Future[*result.Result] { return t.future }
