package compound

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sqlq/database"
	"sqlq/schema"
	"sqlq/statement"
)

// Value is a compound value waiting to be written. The main statement
// refers to it through its session variable.
type Value struct {
	Column   string
	Data     any
	Variable string
	handler  Handler
}

// Placeholder is the SQL the main statement uses in place of a "?".
func (v Value) Placeholder() string {
	return "@" + v.Variable
}

// Alias is the correlation name a side table is joined under.
func Alias(h Handler, column string) string {
	return h.TableName() + "_" + column
}

func newVariable() string {
	return "v" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// NewValue validates that column can be written as a compound value and
// assigns it a fresh correlation variable.
func (m *Manager) NewValue(column schema.Column, data any) (Value, error) {
	h, err := m.Handler(column.Type)
	if err != nil {
		return Value{}, err
	}
	side, err := h.Table()
	if err != nil {
		return Value{}, err
	}
	if _, ok := side.Definition().PrimaryKey(); !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrMissingPrimaryKey, side.Name())
	}
	return Value{Column: column.Name, Data: data, Variable: newVariable(), handler: h}, nil
}

// Expand finalizes, ahead of whatever statement is pending in buf, one side
// row insert and one variable capture per value.
func (m *Manager) Expand(buf *statement.Buffer, db database.Driver, values []Value) error {
	if len(values) == 0 {
		return nil
	}

	type write struct {
		value Value
		side  *schema.Table
		pairs []Pair
	}
	writes := make([]write, 0, len(values))
	for _, v := range values {
		if v.handler == nil {
			return fmt.Errorf("%w: %s", ErrInvalidValue, v.Column)
		}
		side, err := v.handler.Table()
		if err != nil {
			return err
		}
		pairs, err := v.handler.Decompose(v.Data)
		if err != nil {
			return err
		}
		writes = append(writes, write{value: v, side: side, pairs: pairs})
	}

	pending := buf.Stash()
	for _, w := range writes {
		buf.Append("INSERT INTO ", schema.Quote(w.side.Name()), " (")
		for i, p := range w.pairs {
			if i > 0 {
				buf.AppendByte(',')
			}
			buf.Append(schema.Quote(p.Column))
		}
		buf.Append(") VALUES (")
		for i, p := range w.pairs {
			if i > 0 {
				buf.AppendByte(',')
			}
			buf.AppendByte('?')
			buf.Bind(p.Value)
		}
		buf.Append(");")
		buf.FinalizeTo(db)

		buf.Append("SET ", w.value.Placeholder(), "=LAST_INSERT_ID();")
		buf.FinalizeTo(db)
	}
	buf.Restore(pending)
	return nil
}

// Projection renders the aliased side columns that replace a compound
// column in a select list.
func (m *Manager) Projection(table *schema.Table, column string) (string, error) {
	col, ok := table.Definition().Column(column)
	if !ok || !col.Type.Compound {
		return "", fmt.Errorf("%w: %s.%s is not a compound column", ErrInvalidValue, table.Name(), column)
	}
	key := "p|" + table.Name() + "|" + column + "|" + col.Type.Name
	if s, ok := m.cached(key); ok {
		return s, nil
	}
	h, err := m.Handler(col.Type)
	if err != nil {
		return "", err
	}

	alias := Alias(h, column)
	parts := make([]string, 0, len(h.Columns()))
	for _, c := range h.Columns() {
		parts = append(parts, schema.Quote(alias)+"."+schema.Quote(c)+" AS "+schema.Quote(label(alias, c)))
	}
	s := strings.Join(parts, ", ")
	m.store(key, s)
	return s, nil
}

// Joins renders one join per compound column of table, each preceded by a
// space. Nullable columns use a LEFT JOIN so rows without a side row remain.
func (m *Manager) Joins(table *schema.Table) (string, error) {
	cols := table.Definition().CompoundColumns()
	key := joinKey(table.Name(), cols)
	if s, ok := m.cached(key); ok {
		return s, nil
	}

	var sb strings.Builder
	for _, col := range cols {
		h, err := m.Handler(col.Type)
		if err != nil {
			return "", err
		}
		pk, ok := h.Definition().PrimaryKey()
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingPrimaryKey, h.TableName())
		}
		alias := Alias(h, col.Name)
		if col.Nullable {
			sb.WriteString(" LEFT JOIN ")
		} else {
			sb.WriteString(" INNER JOIN ")
		}
		fmt.Fprintf(&sb, "%s AS %s ON %s.%s=%s.%s",
			schema.Quote(h.TableName()), schema.Quote(alias),
			schema.Quote(table.Name()), schema.Quote(col.Name),
			schema.Quote(alias), schema.Quote(pk.Name))
	}
	s := sb.String()
	m.store(key, s)
	return s, nil
}

// joinKey identifies the joins of a table by name and compound columns, so
// two definitions sharing a name never share fragments.
func joinKey(table string, cols []schema.Column) string {
	var sb strings.Builder
	sb.WriteString("j|")
	sb.WriteString(table)
	for _, c := range cols {
		fmt.Fprintf(&sb, "|%s:%s:%t", c.Name, c.Type.Name, c.Nullable)
	}
	return sb.String()
}

func (m *Manager) cached(key string) (string, bool) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	v, ok := m.fragments.Get(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (m *Manager) store(key, s string) {
	m.cacheMu.Lock()
	m.fragments.Add(key, s)
	m.cacheMu.Unlock()
}
