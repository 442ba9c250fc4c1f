package provider

import (
	"errors"
	"sync"

	"sqlq/future"
	"sqlq/result"
	"sqlq/schema"
	"sqlq/shared/logger"
	"sqlq/statement"
)

var ErrTemporaryDefinition = errors.New("temporary tables are created inside a transaction")

// CreateTable creates a table asynchronously. The future resolves during a
// later Drain. Tables with compound columns wait for their side tables.
// Requesting a table that exists or is being created returns the same
// outcome.
func (p *Provider) CreateTable(name string, def *schema.Definition) *future.Future[*schema.Table] {
	p.mu.Lock()
	if t, ok := p.tables[name]; ok {
		p.mu.Unlock()
		f := future.New[*schema.Table]()
		f.Success(t)
		return f
	}
	if f, ok := p.pending[name]; ok {
		p.mu.Unlock()
		return f
	}
	f := future.New[*schema.Table]()
	p.pending[name] = f
	p.mu.Unlock()

	if def.IsTemporary() {
		p.failTable(name, f, ErrTemporaryDefinition.Error())
		return f
	}

	afterAll(p.sideDependencies(def), func(msg string) {
		if msg != "" {
			p.failTable(name, f, msg)
			return
		}
		p.createNow(name, def, f)
	})
	return f
}

func (p *Provider) sideDependencies(def *schema.Definition) []*future.Future[*schema.Table] {
	var deps []*future.Future[*schema.Table]
	for _, c := range def.CompoundColumns() {
		h, err := p.compound.Handler(c.Type)
		if err != nil {
			deps = append(deps, failed(err.Error()))
			continue
		}
		side := h.TableName()

		p.mu.Lock()
		dep, ok := p.pending[side]
		if t, done := p.tables[side]; done {
			dep, ok = future.New[*schema.Table](), true
			dep.Success(t)
		}
		p.mu.Unlock()

		if !ok {
			if _, err := h.Table(); err != nil {
				dep = failed(err.Error())
			} else {
				continue
			}
		}
		deps = append(deps, dep)
	}
	return deps
}

func (p *Provider) createNow(name string, def *schema.Definition, f *future.Future[*schema.Table]) {
	ddl, err := schema.CreateTableSQL(name, def, p)
	if err != nil {
		p.failTable(name, f, err.Error())
		return
	}

	buf := statement.NewBuffer(len(ddl))
	buf.Append(ddl)
	batch := statement.NewBatch(p.db, buf.FinalizeTo(p.db))
	batch.Future().OnResult(func(o future.Outcome[*result.Result]) {
		if o.Failed {
			p.failTable(name, f, o.Message)
			return
		}
		t := schema.NewTable(name, def, p.db)
		p.mu.Lock()
		p.tables[name] = t
		delete(p.pending, name)
		p.mu.Unlock()
		p.log.Info("Table ready", logger.String("table", name))
		f.Success(t)
	})
	if err := p.engine.Execute(batch); err != nil {
		p.failTable(name, f, err.Error())
	}
}

// SideTable resolves the created side table of a compound type.
func (p *Provider) SideTable(t schema.DataType) (*schema.Table, error) {
	h, err := p.compound.Handler(t)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	side, ok := p.tables[h.TableName()]
	p.mu.Unlock()
	if ok {
		return side, nil
	}
	return h.Table()
}

func (p *Provider) failTable(name string, f *future.Future[*schema.Table], msg string) {
	p.mu.Lock()
	delete(p.pending, name)
	p.mu.Unlock()
	p.log.Error("Failed to create table", logger.String("table", name), logger.String("error", msg))
	f.Failure(msg)
}

func failed(msg string) *future.Future[*schema.Table] {
	f := future.New[*schema.Table]()
	f.Failure(msg)
	return f
}

// afterAll calls fn once every dependency has resolved, with the first
// failure message or "" when all succeeded.
func afterAll(deps []*future.Future[*schema.Table], fn func(msg string)) {
	if len(deps) == 0 {
		fn("")
		return
	}
	var mu sync.Mutex
	remaining := len(deps)
	finished := false
	for _, d := range deps {
		d.OnResult(func(o future.Outcome[*schema.Table]) {
			mu.Lock()
			if finished {
				mu.Unlock()
				return
			}
			if o.Failed {
				finished = true
				mu.Unlock()
				fn(o.Message)
				return
			}
			remaining--
			if remaining > 0 {
				mu.Unlock()
				return
			}
			finished = true
			mu.Unlock()
			fn("")
		})
	}
}
