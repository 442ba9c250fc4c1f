package builder

import (
	"sqlq/schema"
	"sqlq/statement"
)

// Delete is a DELETE in its filter stage.
type Delete struct {
	Final
}

// NewDelete starts a DELETE from table.
func NewDelete(env *Env, table *schema.Table) *Delete {
	b := newBase(env, table, statement.ShapeDelete)
	b.buf.Append("DELETE FROM ", schema.Quote(table.Name()))
	return &Delete{Final: Final{b: &b}}
}

func (d *Delete) Where(column, op string, v any) *Delete {
	d.b.condition("AND", column, op, v)
	return d
}

func (d *Delete) And(column, op string, v any) *Delete {
	d.b.condition("AND", column, op, v)
	return d
}

func (d *Delete) Or(column, op string, v any) *Delete {
	d.b.condition("OR", column, op, v)
	return d
}
