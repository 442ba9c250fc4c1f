package statement

import (
	"errors"
	"strings"

	"sqlq/database"
	"sqlq/schema"
)

var (
	ErrEmptyBatch       = errors.New("no finalized statements")
	ErrDatabaseMismatch = errors.New("statements target different databases")
)

// Buffer accumulates SQL text and bound values for one statement at a time.
// Finalize snapshots the pending statement onto the buffer's finalized list
// and resets it, so one buffer can emit several statements in order.
type Buffer struct {
	text      strings.Builder
	values    []any
	kind      Kind
	columns   []string
	prefixed  bool
	finalized []*Finalized
}

// NewBuffer creates a buffer with the given initial text capacity.
func NewBuffer(capacity int) *Buffer {
	b := &Buffer{prefixed: true}
	if capacity > 0 {
		b.text.Grow(capacity)
	}
	return b
}

// Append writes raw SQL text.
func (b *Buffer) Append(parts ...string) *Buffer {
	for _, p := range parts {
		b.text.WriteString(p)
	}
	return b
}

// AppendByte writes a single character.
func (b *Buffer) AppendByte(c byte) *Buffer {
	b.text.WriteByte(c)
	return b
}

// Bind adds a positional value for the next placeholder.
func (b *Buffer) Bind(values ...any) *Buffer {
	b.values = append(b.values, values...)
	return b
}

func (b *Buffer) SetKind(k Kind) *Buffer           { b.kind = k; return b }
func (b *Buffer) SetColumns(cols []string) *Buffer { b.columns = cols; return b }
func (b *Buffer) SetPrefixed(p bool) *Buffer       { b.prefixed = p; return b }

func (b *Buffer) Kind() Kind        { return b.kind }
func (b *Buffer) Text() string      { return b.text.String() }
func (b *Buffer) Values() []any     { return b.values }
func (b *Buffer) Columns() []string { return b.columns }
func (b *Buffer) Len() int          { return b.text.Len() }
func (b *Buffer) Empty() bool       { return b.text.Len() == 0 }

// Finalize snapshots the pending statement against a table. It returns nil
// when nothing is pending. A nil table finalizes without a database.
func (b *Buffer) Finalize(table *schema.Table) *Finalized {
	if b.Empty() {
		return nil
	}
	if table == nil {
		return b.finalize(nil, nil)
	}
	return b.finalize(table, table.Driver())
}

// FinalizeTo snapshots the pending statement against a database without a
// table, as for session statements and side-table writes.
func (b *Buffer) FinalizeTo(db database.Driver) *Finalized {
	if b.Empty() {
		return nil
	}
	return b.finalize(nil, db)
}

func (b *Buffer) finalize(table *schema.Table, db database.Driver) *Finalized {
	values := make([]any, len(b.values))
	copy(values, b.values)
	var columns []string
	if len(b.columns) > 0 {
		columns = make([]string, len(b.columns))
		copy(columns, b.columns)
	}

	f := &Finalized{
		table:    table,
		db:       db,
		sql:      b.text.String(),
		values:   values,
		columns:  columns,
		kind:     b.kind,
		prefixed: b.prefixed,
	}
	b.finalized = append(b.finalized, f)
	b.reset()
	return f
}

func (b *Buffer) reset() {
	b.text.Reset()
	b.values = b.values[:0]
	b.kind = Update
	b.columns = nil
	b.prefixed = true
}

// StartTransaction finalizes anything pending against db, then appends a
// transaction start marker.
func (b *Buffer) StartTransaction(db database.Driver) {
	b.FinalizeTo(db)
	b.finalized = append(b.finalized, NewMarker(db, TransactionStart))
}

// CommitTransaction finalizes anything pending against db, then appends a
// transaction commit marker.
func (b *Buffer) CommitTransaction(db database.Driver) {
	b.FinalizeTo(db)
	b.finalized = append(b.finalized, NewMarker(db, TransactionCommit))
}

// Finalized returns every statement finalized so far, in order.
func (b *Buffer) Finalized() []*Finalized {
	return b.finalized
}

// Batch packages every finalized statement into a new batch.
func (b *Buffer) Batch() (*Batch, error) {
	if len(b.finalized) == 0 {
		return nil, ErrEmptyBatch
	}
	batch := NewBatch(b.finalized[0].db)
	for _, f := range b.finalized {
		if err := batch.Add(f); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

// Pending is a saved, not yet finalized statement.
type Pending struct {
	text     string
	values   []any
	kind     Kind
	columns  []string
	prefixed bool
}

// Stash removes the pending statement from the buffer so that other
// statements can be finalized ahead of it.
func (b *Buffer) Stash() Pending {
	p := Pending{
		text:     b.text.String(),
		values:   append([]any(nil), b.values...),
		kind:     b.kind,
		columns:  b.columns,
		prefixed: b.prefixed,
	}
	b.reset()
	return p
}

// Restore puts a stashed statement back in front of anything written since.
func (b *Buffer) Restore(p Pending) {
	text := b.text.String()
	values := append([]any(nil), b.values...)

	b.text.Reset()
	b.text.WriteString(p.text)
	b.text.WriteString(text)
	b.values = append(p.values, values...)
	b.kind = p.kind
	b.columns = p.columns
	b.prefixed = p.prefixed
}
