// Package compound stores structured values in side tables. A compound
// column in a main table holds the primary key of a side-table row; writes
// insert the side row first and capture its id in a session variable, reads
// join the side table back and rebuild the value from the aliased columns.
package compound

import (
	"errors"
	"fmt"
	"sync"

	"sqlq/result"
	"sqlq/schema"
)

var (
	ErrUnsupportedType   = errors.New("Data type not supported")
	ErrMissingPrimaryKey = errors.New("Primary key missing from compound table")
	ErrNotLoaded         = errors.New("compound table is not loaded")
	ErrInvalidValue      = errors.New("invalid compound value")
)

// IsNullColumn is the discriminant every side table starts with.
const IsNullColumn = "isNull"

// Pair is one side-table column and the value written to it.
type Pair struct {
	Column string
	Value  any
}

// Handler maps one compound data type onto its side table.
type Handler interface {
	Type() schema.DataType
	TableName() string
	Definition() *schema.Definition

	// Columns lists the projected side columns in order, without the key.
	Columns() []string

	// Decompose turns a value into ordered column writes. A nil value
	// decomposes to exactly one pair: (isNull, true).
	Decompose(v any) ([]Pair, error)

	// Reconstruct rebuilds a value from the current row using labels of the
	// form "<alias>.<column>". A null marker yields nil.
	Reconstruct(alias string, row *result.Rows) (any, error)

	IsLoaded() bool
	Table() (*schema.Table, error)
	Bind(t *schema.Table)
}

// sideTable tracks the asynchronously created table of a handler.
type sideTable struct {
	mu    sync.RWMutex
	name  string
	table *schema.Table
}

func (s *sideTable) TableName() string { return s.name }

func (s *sideTable) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table != nil
}

func (s *sideTable) Table() (*schema.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, s.name)
	}
	return s.table, nil
}

func (s *sideTable) Bind(t *schema.Table) {
	s.mu.Lock()
	s.table = t
	s.mu.Unlock()
}

// sideDefinition prefixes the key and null marker shared by all side tables.
func sideDefinition(cols ...schema.Column) *schema.Definition {
	def := schema.NewDefinition(
		schema.Col("id", schema.UnsignedBigInt).Primary().AutoIncr(),
		schema.Col(IsNullColumn, schema.Bool).DefaultTo("false"),
	)
	for _, c := range cols {
		def.Add(c)
	}
	return def
}

func nullPairs() []Pair {
	return []Pair{{Column: IsNullColumn, Value: true}}
}

func label(alias, column string) string {
	return alias + "." + column
}

// readNull reports whether the side row is absent or flagged null. The
// marker column must have been projected.
func readNull(alias string, row *result.Rows) (bool, error) {
	l := label(alias, IsNullColumn)
	v, err := row.Value(l)
	if err != nil {
		return false, err
	}
	if v == nil {
		return true, nil
	}
	return row.Bool(l)
}
