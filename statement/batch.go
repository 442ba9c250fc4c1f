package statement

import (
	"errors"

	"sqlq/database"
	"sqlq/future"
	"sqlq/result"
)

// ErrNilStatement is returned when a nil statement is added to a batch.
var ErrNilStatement = errors.New("nil statement")

// Batch is an ordered list of finalized statements that execute as one unit
// on one connection and share a single future.
type Batch struct {
	db         database.Driver
	statements []*Finalized
	future     *future.Future[*result.Result]
}

// NewBatch creates an empty batch bound to db.
func NewBatch(db database.Driver, statements ...*Finalized) *Batch {
	b := &Batch{
		db:     db,
		future: future.New[*result.Result](),
	}
	for _, s := range statements {
		if s != nil {
			b.statements = append(b.statements, s)
		}
	}
	return b
}

// Add appends a statement. Statements must target the batch's database.
func (b *Batch) Add(s *Finalized) error {
	if s == nil {
		return ErrNilStatement
	}
	if s.db != b.db {
		return ErrDatabaseMismatch
	}
	b.statements = append(b.statements, s)
	return nil
}

func (b *Batch) Driver() database.Driver                { return b.db }
func (b *Batch) Statements() []*Finalized               { return b.statements }
func (b *Batch) Len() int                               { return len(b.statements) }
func (b *Batch) Future() *future.Future[*result.Result] { return b.future }

// Temporary reports whether any statement targets a temporary table.
func (b *Batch) Temporary() bool {
	for _, s := range b.statements {
		if s.Temporary() {
			return true
		}
	}
	return false
}
