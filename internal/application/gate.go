package application

import (
	"sync"
	"sync/atomic"
)

// gate serializes callback delivery and drops callbacks that belong to an
// invalidated generation.
type gate struct {
	mu       sync.Mutex
	gen      atomic.Uint64
	inflight atomic.Bool
}

func (g *gate) current() uint64 {
	return g.gen.Load()
}

// advance invalidates every generation handed out so far.
func (g *gate) advance() uint64 {
	return g.gen.Add(1)
}

// settle waits for a deliverer that passed its generation check before the
// last advance. It returns immediately while a callback is running, which also
// covers callers that re-enter from inside a callback.
func (g *gate) settle() {
	if g.inflight.Load() {
		return
	}
	g.mu.Lock()
	g.mu.Unlock() //nolint:staticcheck // empty critical section is the barrier
}

func (g *gate) deliver(gen uint64, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gen.Load() != gen {
		return false
	}

	g.inflight.Store(true)
	defer g.inflight.Store(false)
	fn()

	return true
}
