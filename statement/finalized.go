package statement

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sqlq/database"
	"sqlq/schema"
)

// Finalized is an immutable statement ready for execution.
type Finalized struct {
	table    *schema.Table
	db       database.Driver
	sql      string
	values   []any
	columns  []string
	kind     Kind
	prefixed bool
}

// NewMarker creates a bare transaction marker.
func NewMarker(db database.Driver, kind Kind) *Finalized {
	if !kind.IsMarker() {
		panic(fmt.Sprintf("statement: %s is not a transaction marker", kind))
	}
	return &Finalized{db: db, kind: kind, prefixed: true}
}

func (f *Finalized) Table() *schema.Table    { return f.table }
func (f *Finalized) Driver() database.Driver { return f.db }
func (f *Finalized) SQL() string             { return f.sql }
func (f *Finalized) Kind() Kind              { return f.kind }
func (f *Finalized) Prefixed() bool          { return f.prefixed }

// Values returns the bound values as given.
func (f *Finalized) Values() []any {
	return f.values
}

// Columns returns the declared result or affected columns.
func (f *Finalized) Columns() []string {
	return f.columns
}

// Temporary reports whether the statement targets a temporary table.
func (f *Finalized) Temporary() bool {
	return f.table != nil && f.table.Temporary()
}

// Named values bind by their SQL name instead of their Go value.
type Named interface {
	SQLName() string
}

// Args returns the bound values encoded for the driver. UUIDs are sent as
// their 16 big-endian bytes.
func (f *Finalized) Args() []any {
	args := make([]any, len(f.values))
	for i, v := range f.values {
		args[i] = encodeValue(v)
	}
	return args
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case uuid.UUID:
		b := make([]byte, 16)
		copy(b, t[:])
		return b
	case *uuid.UUID:
		if t == nil {
			return nil
		}
		return encodeValue(*t)
	case time.Time, driver.Valuer:
		return v
	case Named:
		return t.SQLName()
	default:
		return v
	}
}

func (f *Finalized) String() string {
	if f.kind.IsMarker() {
		return f.kind.String()
	}
	return f.sql
}
