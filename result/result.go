// Package result holds what a unit of work produced: one materialized row
// set per query statement and one affected-row count per update statement,
// both in execution order.
package result

// Result accumulates the outcome of an executed batch or transaction.
type Result struct {
	queries []*Rows
	updated []int64
}

// New creates an empty result.
func New() *Result {
	return &Result{}
}

// AddQuery appends a row set.
func (r *Result) AddQuery(rows *Rows) {
	r.queries = append(r.queries, rows)
}

// AddUpdate appends an affected-row count.
func (r *Result) AddUpdate(n int64) {
	r.updated = append(r.updated, n)
}

// Merge appends everything from other, preserving order.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.queries = append(r.queries, other.queries...)
	r.updated = append(r.updated, other.updated...)
}

// Queries returns every row set in execution order.
func (r *Result) Queries() []*Rows {
	return r.queries
}

// RowsAffected returns every affected-row count in execution order.
func (r *Result) RowsAffected() []int64 {
	return r.updated
}

// FirstQuery returns the first row set, or nil.
func (r *Result) FirstQuery() *Rows {
	if len(r.queries) == 0 {
		return nil
	}
	return r.queries[0]
}

// FirstRowsAffected returns the first affected-row count, or -1.
func (r *Result) FirstRowsAffected() int64 {
	if len(r.updated) == 0 {
		return -1
	}
	return r.updated[0]
}

func (r *Result) HasQueryResults() bool { return len(r.queries) > 0 }
func (r *Result) HasUpdatedRows() bool  { return len(r.updated) > 0 }
