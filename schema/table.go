package schema

import (
	"sqlq/database"
)

// Column is a single column definition. The chain methods return modified
// copies.
type Column struct {
	Name          string
	Type          DataType
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	Default       string
}

// Col starts a column definition.
func Col(name string, t DataType) Column {
	return Column{Name: name, Type: t}
}

func (c Column) Primary() Column             { c.PrimaryKey = true; return c }
func (c Column) AutoIncr() Column            { c.AutoIncrement = true; return c }
func (c Column) Null() Column                { c.Nullable = true; return c }
func (c Column) UniqueKey() Column           { c.Unique = true; return c }
func (c Column) DefaultTo(sql string) Column { c.Default = sql; return c }

// Definition is the ordered column list of a table.
type Definition struct {
	columns   []Column
	temporary bool
}

// NewDefinition builds a definition from columns in order.
func NewDefinition(cols ...Column) *Definition {
	return &Definition{columns: cols}
}

// Add appends a column.
func (d *Definition) Add(c Column) *Definition {
	d.columns = append(d.columns, c)
	return d
}

// Temporary marks the table as a session temporary table.
func (d *Definition) Temporary() *Definition {
	d.temporary = true
	return d
}

func (d *Definition) IsTemporary() bool { return d.temporary }

// Columns returns the columns in declaration order.
func (d *Definition) Columns() []Column {
	return d.columns
}

// Column finds a column by name.
func (d *Definition) Column(name string) (Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the first primary key column.
func (d *Definition) PrimaryKey() (Column, bool) {
	for _, c := range d.columns {
		if c.PrimaryKey {
			return c, true
		}
	}
	return Column{}, false
}

// Writable lists the columns an INSERT names, skipping auto-increment ones.
func (d *Definition) Writable() []Column {
	out := make([]Column, 0, len(d.columns))
	for _, c := range d.columns {
		if !c.AutoIncrement {
			out = append(out, c)
		}
	}
	return out
}

// CompoundColumns lists columns backed by side tables.
func (d *Definition) CompoundColumns() []Column {
	var out []Column
	for _, c := range d.columns {
		if c.Type.Compound {
			out = append(out, c)
		}
	}
	return out
}

// Table is a created table bound to the database it lives in.
type Table struct {
	name string
	def  *Definition
	db   database.Driver
}

// NewTable binds a definition to a database.
func NewTable(name string, def *Definition, db database.Driver) *Table {
	return &Table{name: name, def: def, db: db}
}

func (t *Table) Name() string            { return t.name }
func (t *Table) Definition() *Definition { return t.def }
func (t *Table) Driver() database.Driver { return t.db }
func (t *Table) Temporary() bool         { return t.def.temporary }
