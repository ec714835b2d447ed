package engine

import "sync"

// Pool recycles evaluation contexts so the steady state allocates nothing
// per call. sync.Pool shards its free lists per P, which gives each worker
// an effectively private context without any lock on the hot path.
type Pool struct {
	p sync.Pool
}

// NewPool returns an empty context pool.
func NewPool() *Pool {
	pool := &Pool{}
	pool.p.New = func() any { return newContext(0, 0) }
	return pool
}

// Acquire borrows a context sized for the given model. A context last used
// against a smaller model is grown before being returned.
func (p *Pool) Acquire(m *Model) *Context {
	c := p.p.Get().(*Context)
	if !c.fits(m) {
		c.grow(m.NumRules(), m.NumPredicates())
	}
	return c
}

// Release resets a context and returns it to the pool.
func (p *Pool) Release(c *Context) {
	c.Reset()
	p.p.Put(c)
}
