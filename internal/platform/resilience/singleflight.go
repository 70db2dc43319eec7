package resilience

import (
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// SingleFlight shares one execution of fn among concurrent callers of the
// same key. A panic in fn is returned to every waiter as an error.
type SingleFlight[T any] struct {
	mu      sync.Mutex
	pending map[string]*flight[T]
}

type flight[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

// Do reports shared=true when the result came from another caller's run.
func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (val T, shared bool, err error) {
	g.mu.Lock()
	if g.pending == nil {
		g.pending = make(map[string]*flight[T])
	}
	if f, ok := g.pending[key]; ok {
		g.mu.Unlock()
		f.wg.Wait()
		return f.val, true, f.err
	}

	f := &flight[T]{}
	f.wg.Add(1)
	g.pending[key] = f
	g.mu.Unlock()

	var catcher panics.Catcher
	catcher.Try(func() { f.val, f.err = fn() })
	if recovered := catcher.Recovered(); recovered != nil {
		var zero T
		f.val, f.err = zero, recovered.AsError()
	}

	g.mu.Lock()
	delete(g.pending, key)
	g.mu.Unlock()
	f.wg.Done()

	return f.val, false, f.err
}

// InFlight reports how many keys currently have a running call.
func (g *SingleFlight[T]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
