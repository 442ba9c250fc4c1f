// Package builder composes INSERT, UPDATE, SELECT and DELETE statements for
// a table. Each builder writes into its own statement buffer, expands
// compound values into side-table writes when finalized, and records the
// final text size so later builders of the same shape start with a buffer
// of the right capacity.
package builder

import (
	"errors"
	"fmt"

	"sqlq/compound"
	"sqlq/future"
	"sqlq/result"
	"sqlq/schema"
	"sqlq/statement"
)

var (
	ErrFinalized     = errors.New("statement is already finalized")
	ErrUnknownColumn = errors.New("unknown column")
	ErrValueCount    = errors.New("value count does not match column count")
	ErrNoExecutor    = errors.New("no executor configured")
	ErrSetAfterWhere = errors.New("SET must come before WHERE")
	ErrSubmitted     = errors.New("statements are already batched")
)

// Executor queues batches for execution.
type Executor interface {
	Execute(b *statement.Batch) error
}

// Env is what builders share with the provider that created them.
type Env struct {
	Compound *compound.Manager
	Trackers *statement.Trackers
	Engine   Executor
}

type base struct {
	env       *Env
	table     *schema.Table
	shape     statement.Shape
	buf       *statement.Buffer
	compounds []compound.Value
	err       error
	final     *statement.Finalized
	done      bool
	batched   bool
	where     whereClause
}

func newBase(env *Env, table *schema.Table, shape statement.Shape) base {
	return base{
		env:   env,
		table: table,
		shape: shape,
		buf:   statement.NewBuffer(env.Trackers.For(shape).Size()),
	}
}

// fail records the first construction error; Finalize reports it.
func (b *base) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// writable reports whether the builder may still be changed.
func (b *base) writable() bool {
	if b.done {
		b.fail(ErrFinalized)
		return false
	}
	return b.err == nil
}

func (b *base) column(name string) (schema.Column, bool) {
	c, ok := b.table.Definition().Column(name)
	if !ok {
		b.fail(fmt.Errorf("%w: %s.%s", ErrUnknownColumn, b.table.Name(), name))
	}
	return c, ok
}

func (b *base) qualified(column string) string {
	return schema.Quote(b.table.Name()) + "." + schema.Quote(column)
}

// placeholder binds v for column and returns the SQL standing in for it.
func (b *base) placeholder(c schema.Column, v any) string {
	if c.Type.Compound {
		cv, err := b.env.Compound.NewValue(c, v)
		if err != nil {
			b.fail(err)
			return "NULL"
		}
		b.compounds = append(b.compounds, cv)
		return cv.Placeholder()
	}
	b.buf.Bind(v)
	return "?"
}

func (b *base) finalize() (*statement.Finalized, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.done {
		return b.final, nil
	}
	if err := b.env.Compound.Expand(b.buf, b.table.Driver(), b.compounds); err != nil {
		return nil, err
	}
	b.env.Trackers.For(b.shape).Register(b.buf.Len())
	b.final = b.buf.Finalize(b.table)
	b.done = true
	return b.final, nil
}

// batch packages the finalized statements once; they are consumed by a
// single execution.
func (b *base) batch() (*statement.Batch, error) {
	if _, err := b.finalize(); err != nil {
		return nil, err
	}
	if b.batched {
		return nil, ErrSubmitted
	}
	batch, err := b.buf.Batch()
	if err != nil {
		return nil, err
	}
	b.batched = true
	return batch, nil
}

func (b *base) execute() (*future.Future[*result.Result], error) {
	if b.env.Engine == nil {
		return nil, ErrNoExecutor
	}
	batch, err := b.batch()
	if err != nil {
		return nil, err
	}
	if err := b.env.Engine.Execute(batch); err != nil {
		return nil, err
	}
	return batch.Future(), nil
}

// Final is the last stage shared by every builder.
type Final struct {
	b *base
}

// Finalize returns the main statement. Calling it again returns the same
// statement.
func (f Final) Finalize() (*statement.Finalized, error) { return f.b.finalize() }

// Statements returns every statement the builder produced, side-table
// writes first.
func (f Final) Statements() ([]*statement.Finalized, error) {
	if _, err := f.b.finalize(); err != nil {
		return nil, err
	}
	return f.b.buf.Finalized(), nil
}

// Batch packages the statements for submission or for a transaction.
func (f Final) Batch() (*statement.Batch, error) { return f.b.batch() }

// Execute submits the statements as one batch.
func (f Final) Execute() (*future.Future[*result.Result], error) { return f.b.execute() }
