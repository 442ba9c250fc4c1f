package result

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRowsCursorAndAccessors(t *testing.T) {
	id := uuid.New()
	rows := NewRows(
		[]string{"name", "score", "ratio", "alive", "owner"},
		[][]any{
			{[]byte("alice"), int64(12), []byte("0.5"), []byte("1"), id[:]},
			{"bob", []byte("7"), float32(1.5), int64(0), nil},
		},
	)

	if _, err := rows.Value("name"); !errors.Is(err, ErrNoRow) {
		t.Errorf("Expected ErrNoRow before Next, got %v", err)
	}

	if !rows.Next() {
		t.Fatalf("Expected first row")
	}
	if s, _ := rows.String("name"); s != "alice" {
		t.Errorf("Expected alice, got %s", s)
	}
	if n, _ := rows.Int64("score"); n != 12 {
		t.Errorf("Expected 12, got %d", n)
	}
	if f, _ := rows.Float64("ratio"); f != 0.5 {
		t.Errorf("Expected 0.5, got %v", f)
	}
	if b, _ := rows.Bool("alive"); !b {
		t.Errorf("Expected alive to be true")
	}
	if got, _ := rows.UUID("owner"); got != id {
		t.Errorf("Expected %s, got %s", id, got)
	}

	if !rows.Next() {
		t.Fatalf("Expected second row")
	}
	if n, _ := rows.Int64("score"); n != 7 {
		t.Errorf("Expected 7, got %d", n)
	}
	if f, _ := rows.Float64("ratio"); f != 1.5 {
		t.Errorf("Expected 1.5, got %v", f)
	}
	if b, _ := rows.Bool("alive"); b {
		t.Errorf("Expected alive to be false")
	}
	if !rows.IsNull("owner") {
		t.Errorf("Expected owner to be NULL")
	}
	if _, err := rows.Value("missing"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Expected ErrUnknownColumn, got %v", err)
	}

	if rows.Next() {
		t.Errorf("Expected end of rows")
	}
	rows.Reset()
	if !rows.Next() {
		t.Errorf("Expected Reset to rewind")
	}
}

func TestParseFailure(t *testing.T) {
	rows := NewRows([]string{"n"}, [][]any{{[]byte("abc")}})
	rows.Next()
	if _, err := rows.Int64("n"); err == nil {
		t.Errorf("Expected parse error")
	}
}

func TestResultMerge(t *testing.T) {
	a := New()
	a.AddUpdate(1)
	b := New()
	b.AddQuery(NewRows(nil, nil))
	b.AddUpdate(2)

	a.Merge(b)
	if got := a.RowsAffected(); len(got) != 2 || got[1] != 2 {
		t.Errorf("Expected [1 2], got %v", got)
	}
	if !a.HasQueryResults() || a.FirstQuery() == nil {
		t.Errorf("Expected merged query result")
	}
	if New().FirstRowsAffected() != -1 {
		t.Errorf("Expected -1 for empty result")
	}
}
