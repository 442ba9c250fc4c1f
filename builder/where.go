package builder

import (
	"fmt"
	"strings"
)

var operators = map[string]bool{
	"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true, "LIKE": true,
}

type whereClause struct {
	started bool
}

// condition appends one comparison joined with glue.
func (b *base) condition(glue, column, op string, v any) {
	if !b.writable() {
		return
	}
	c, ok := b.column(column)
	if !ok {
		return
	}
	op = strings.ToUpper(strings.TrimSpace(op))
	if !operators[op] {
		b.fail(fmt.Errorf("unsupported operator: %s", op))
		return
	}
	if c.Type.Compound {
		b.fail(fmt.Errorf("cannot compare compound column %s", column))
		return
	}

	if !b.where.started {
		b.buf.Append(" WHERE ")
		b.where.started = true
	} else {
		b.buf.Append(" ", glue, " ")
	}
	b.buf.Append(b.qualified(column))

	if v == nil {
		switch op {
		case "=":
			b.buf.Append(" IS NULL")
			return
		case "!=", "<>":
			b.buf.Append(" IS NOT NULL")
			return
		}
	}
	if op == "LIKE" {
		b.buf.Append(" LIKE ?")
	} else {
		b.buf.Append(op, "?")
	}
	b.buf.Bind(v)
}
