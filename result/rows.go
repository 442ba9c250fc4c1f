package result

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNoRow         = errors.New("no current row")
	ErrUnknownColumn = errors.New("unknown column")
)

// Rows is a fully materialized row set. It outlives the connection that
// produced it. Iterate with Next; accessors read the current row.
type Rows struct {
	columns []string
	index   map[string]int
	data    [][]any
	cursor  int

	// Statement columns as requested by the builder, which may differ from
	// the labels the server returned.
	requested []string
}

// NewRows builds a row set from labels and values.
func NewRows(columns []string, data [][]any) *Rows {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return &Rows{columns: columns, index: index, data: data, cursor: -1}
}

// Materialize drains rows into memory and closes them.
func Materialize(rows *sqlx.Rows, requested []string) (*Rows, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	var data [][]any
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := NewRows(columns, data)
	out.requested = requested
	return out, nil
}

// Columns returns the labels returned by the server.
func (r *Rows) Columns() []string { return r.columns }

// Requested returns the statement's declared columns.
func (r *Rows) Requested() []string { return r.requested }

// Len is the number of rows.
func (r *Rows) Len() int { return len(r.data) }

// Next advances the cursor.
func (r *Rows) Next() bool {
	if r.cursor+1 >= len(r.data) {
		r.cursor = len(r.data)
		return false
	}
	r.cursor++
	return true
}

// Reset rewinds the cursor before the first row.
func (r *Rows) Reset() { r.cursor = -1 }

// Value returns the raw value for label in the current row.
func (r *Rows) Value(label string) (any, error) {
	if r.cursor < 0 || r.cursor >= len(r.data) {
		return nil, ErrNoRow
	}
	i, ok := r.index[label]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, label)
	}
	return r.data[r.cursor][i], nil
}

// IsNull reports whether label is NULL in the current row. Unknown labels
// count as NULL; use Value to tell them apart.
func (r *Rows) IsNull(label string) bool {
	v, err := r.Value(label)
	return err != nil || v == nil
}

func (r *Rows) String(label string) (string, error) {
	v, err := r.Value(label)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	default:
		return fmt.Sprint(t), nil
	}
}

func (r *Rows) Int64(label string) (int64, error) {
	v, err := r.Value(label)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseInt(label, string(t))
	case string:
		return parseInt(label, t)
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to int64", label, v)
	}
}

func parseInt(label, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", label, err)
	}
	return n, nil
}

func (r *Rows) Float64(label string) (float64, error) {
	v, err := r.Value(label)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case []byte:
		return parseFloat(label, string(t))
	case string:
		return parseFloat(label, t)
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to float64", label, v)
	}
}

func parseFloat(label, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", label, err)
	}
	return f, nil
}

func (r *Rows) Bool(label string) (bool, error) {
	v, err := r.Value(label)
	if err != nil {
		return false, err
	}
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case []byte:
		return strconv.ParseBool(string(t))
	case string:
		return strconv.ParseBool(t)
	default:
		n, err := r.Int64(label)
		return n != 0, err
	}
}

func (r *Rows) Bytes(label string) ([]byte, error) {
	v, err := r.Value(label)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("column %s: cannot convert %T to bytes", label, v)
	}
}

func (r *Rows) Time(label string) (time.Time, error) {
	v, err := r.Value(label)
	if err != nil {
		return time.Time{}, err
	}
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("column %s: cannot convert %T to time", label, v)
	}
}

// UUID decodes a 16-byte binary column.
func (r *Rows) UUID(label string) (uuid.UUID, error) {
	b, err := r.Bytes(label)
	if err != nil {
		return uuid.Nil, err
	}
	if b == nil {
		return uuid.Nil, nil
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, fmt.Errorf("column %s: %w", label, err)
	}
	return id, nil
}
