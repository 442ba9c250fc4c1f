package builder

import (
	"sqlq/schema"
	"sqlq/statement"
)

// Insert is the column stage of an INSERT.
type Insert struct {
	b       *base
	columns []schema.Column
}

// InsertValues is the values stage of an INSERT.
type InsertValues struct {
	Final
	ins  *Insert
	rows int
}

// NewInsert starts an INSERT into the named columns, or into every writable
// column when none are named.
func NewInsert(env *Env, table *schema.Table, columns ...string) *Insert {
	b := newBase(env, table, statement.ShapeInsert)
	ins := &Insert{b: &b}

	if len(columns) == 0 {
		ins.columns = table.Definition().Writable()
	} else {
		for _, name := range columns {
			if c, ok := b.column(name); ok {
				ins.columns = append(ins.columns, c)
			}
		}
	}

	names := make([]string, len(ins.columns))
	b.buf.Append("INSERT INTO ", schema.Quote(table.Name()), " (")
	for i, c := range ins.columns {
		if i > 0 {
			b.buf.AppendByte(',')
		}
		b.buf.Append(schema.Quote(c.Name))
		names[i] = c.Name
	}
	b.buf.AppendByte(')')
	b.buf.SetColumns(names)
	return ins
}

// Values adds one row.
func (i *Insert) Values(values ...any) *InsertValues {
	v := &InsertValues{Final: Final{b: i.b}, ins: i}
	return v.Values(values...)
}

// Values adds another row.
func (v *InsertValues) Values(values ...any) *InsertValues {
	b := v.b
	if !b.writable() {
		return v
	}
	if len(values) != len(v.ins.columns) {
		b.fail(ErrValueCount)
		return v
	}

	if v.rows == 0 {
		b.buf.Append(" VALUES (")
	} else {
		b.buf.Append(", (")
	}
	for i, c := range v.ins.columns {
		if i > 0 {
			b.buf.AppendByte(',')
		}
		b.buf.Append(b.placeholder(c, values[i]))
	}
	b.buf.AppendByte(')')
	v.rows++
	return v
}

// OnDuplicateKeyUpdate overwrites the named columns with the inserted
// values when the row already exists.
func (v *InsertValues) OnDuplicateKeyUpdate(columns ...string) *InsertValues {
	b := v.b
	if !b.writable() || len(columns) == 0 {
		return v
	}
	b.buf.Append(" ON DUPLICATE KEY UPDATE ")
	for i, name := range columns {
		if _, ok := b.column(name); !ok {
			return v
		}
		if i > 0 {
			b.buf.Append(", ")
		}
		q := schema.Quote(name)
		b.buf.Append(q, "=VALUES(", q, ")")
	}
	return v
}

// SelectIdentity finalizes the insert and queues a query for the generated
// key of the last inserted row.
func (v *InsertValues) SelectIdentity() Final {
	b := v.b
	if _, err := b.finalize(); err != nil {
		return v.Final
	}
	b.buf.Append("SELECT LAST_INSERT_ID();").SetKind(statement.Query).SetColumns([]string{"LAST_INSERT_ID()"})
	b.buf.Finalize(b.table)
	return v.Final
}
