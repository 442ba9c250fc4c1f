package builder

import (
	"strconv"

	"sqlq/schema"
	"sqlq/statement"
)

// Select is a SELECT in its filter stage. The projection and joins are
// written when the builder is created.
type Select struct {
	Final
	ordered bool
}

// NewSelect starts a SELECT of the named columns, or of every column when
// none are named. Compound columns are projected from their joined side
// tables.
func NewSelect(env *Env, table *schema.Table, columns ...string) *Select {
	b := newBase(env, table, statement.ShapeSelect)
	s := &Select{Final: Final{b: &b}}

	var cols []schema.Column
	if len(columns) == 0 {
		cols = table.Definition().Columns()
	} else {
		for _, name := range columns {
			if c, ok := b.column(name); ok {
				cols = append(cols, c)
			}
		}
	}

	names := make([]string, len(cols))
	b.buf.Append("SELECT ")
	for i, c := range cols {
		if i > 0 {
			b.buf.Append(", ")
		}
		names[i] = c.Name
		if !c.Type.Compound {
			b.buf.Append(b.qualified(c.Name))
			continue
		}
		proj, err := env.Compound.Projection(table, c.Name)
		if err != nil {
			b.fail(err)
			continue
		}
		b.buf.Append(proj)
	}
	b.buf.Append(" FROM ", schema.Quote(table.Name()))

	joins, err := env.Compound.Joins(table)
	if err != nil {
		b.fail(err)
	}
	b.buf.Append(joins)
	b.buf.SetKind(statement.Query).SetColumns(names)
	return s
}

func (s *Select) Where(column, op string, v any) *Select {
	s.b.condition("AND", column, op, v)
	return s
}

func (s *Select) And(column, op string, v any) *Select {
	s.b.condition("AND", column, op, v)
	return s
}

func (s *Select) Or(column, op string, v any) *Select {
	s.b.condition("OR", column, op, v)
	return s
}

// OrderBy adds a sort key.
func (s *Select) OrderBy(column string, descending bool) *Select {
	b := s.b
	if !b.writable() {
		return s
	}
	if _, ok := b.column(column); !ok {
		return s
	}
	if !s.ordered {
		b.buf.Append(" ORDER BY ")
		s.ordered = true
	} else {
		b.buf.Append(", ")
	}
	b.buf.Append(b.qualified(column))
	if descending {
		b.buf.Append(" DESC")
	}
	return s
}

// Limit caps the number of rows.
func (s *Select) Limit(n int) Final {
	b := s.b
	if b.writable() {
		b.buf.Append(" LIMIT ", strconv.Itoa(n))
	}
	return s.Final
}
