package builder

import (
	"sqlq/schema"
	"sqlq/statement"
)

// Update is an UPDATE in its SET stage.
type Update struct {
	Final
	sets int
}

// NewUpdate starts an UPDATE of table.
func NewUpdate(env *Env, table *schema.Table) *Update {
	b := newBase(env, table, statement.ShapeUpdate)
	b.buf.Append("UPDATE ", schema.Quote(table.Name()), " SET ")
	return &Update{Final: Final{b: &b}}
}

// Set assigns a column. A nil value resets a scalar column to its default;
// a nil compound value writes a null marker row.
func (u *Update) Set(column string, v any) *Update {
	b := u.b
	if !b.writable() {
		return u
	}
	if b.where.started {
		b.fail(ErrSetAfterWhere)
		return u
	}
	c, ok := b.column(column)
	if !ok {
		return u
	}
	if u.sets > 0 {
		b.buf.Append(", ")
	}
	b.buf.Append(schema.Quote(c.Name), "=")
	if v == nil && !c.Type.Compound {
		b.buf.Append("DEFAULT")
	} else {
		b.buf.Append(b.placeholder(c, v))
	}
	u.sets++
	return u
}

// Where adds the first condition.
func (u *Update) Where(column, op string, v any) *Update {
	u.b.condition("AND", column, op, v)
	return u
}

func (u *Update) And(column, op string, v any) *Update {
	u.b.condition("AND", column, op, v)
	return u
}

func (u *Update) Or(column, op string, v any) *Update {
	u.b.condition("OR", column, op, v)
	return u
}
