package circuitbreaker

import (
	"sync"
)

// Table maps rule keys to circuit contexts. Reads never block; writers to
// different keys do not contend.
type Table struct {
	entries sync.Map // string -> *Context
}

func NewTable() *Table {
	return &Table{}
}

func (t *Table) Get(key string) (*Context, bool) {
	v, ok := t.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Context), true
}

// GetOrCreate returns the context for key, storing factory's result when
// none exists. Under concurrent first access only one result is kept.
func (t *Table) GetOrCreate(key string, factory func() *Context) *Context {
	if c, ok := t.Get(key); ok {
		return c
	}
	v, _ := t.entries.LoadOrStore(key, factory())
	return v.(*Context)
}

func (t *Table) Upsert(key string, c *Context) {
	t.entries.Store(key, c)
}

// CompareAndSwap replaces old with c only if old is still the stored value.
func (t *Table) CompareAndSwap(key string, old, c *Context) bool {
	return t.entries.CompareAndSwap(key, old, c)
}

// Range calls fn for each entry until fn returns false. It is safe to call
// while other goroutines mutate the table.
func (t *Table) Range(fn func(key string, c *Context) bool) {
	t.entries.Range(func(k, v any) bool {
		return fn(k.(string), v.(*Context))
	})
}

func (t *Table) Len() int {
	n := 0
	t.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (t *Table) Reset() {
	t.entries.Clear()
}

// Stats returns the state of every known circuit.
func (t *Table) Stats() map[string]State {
	stats := make(map[string]State)
	t.Range(func(key string, c *Context) bool {
		stats[key] = c.State()
		return true
	})
	return stats
}
