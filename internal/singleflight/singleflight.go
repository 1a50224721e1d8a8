// Package singleflight deduplicates concurrent calls that would perform the
// same idempotent work, keyed by an arbitrary comparable key. Callers that
// arrive while a call for their key is in flight wait for its result instead
// of racing; unrelated keys proceed fully in parallel.
package singleflight

import (
	"fmt"
	"sync"
)

type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Group is the zero-value-ready dedup map.
type Group[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*call[V]
}

// Do runs fn once per key at a time. If a call for key is already in flight,
// Do waits for it and returns its result.
func (g *Group[K, V]) Do(key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[K]*call[V])
	}
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.val, c.err
	}

	c := &call[V]{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	// The entry must be removed and waiters released even if fn panics,
	// or every later Do for this key would block forever. The panic is
	// re-raised in the calling goroutine; waiters see an error.
	defer func() {
		r := recover()
		if r != nil {
			c.err = fmt.Errorf("call for key panicked: %v", r)
		}
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		close(c.done)
		if r != nil {
			panic(r)
		}
	}()

	c.val, c.err = fn()
	return c.val, c.err
}
