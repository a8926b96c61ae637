package zkpath

import (
	"context"
	"fmt"
	"sync"
)

// Deferred is a single-assignment result: resolved exactly once with either
// a value or an error. Continuations may be attached at any time; those
// attached after resolution run immediately on the attaching goroutine.
type Deferred[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	val      T
	err      error
	resolved bool
	conts    []func(T, error)
}

// NewDeferred returns an unresolved Deferred.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Resolve completes the Deferred with a value. Resolving twice is an
// invariant violation and panics.
func (d *Deferred[T]) Resolve(val T) {
	d.complete(val, nil)
}

// Reject completes the Deferred with an error. Resolving twice is an
// invariant violation and panics.
func (d *Deferred[T]) Reject(err error) {
	var zero T
	d.complete(zero, err)
}

func (d *Deferred[T]) complete(val T, err error) {
	d.mu.Lock()
	if d.resolved {
		d.mu.Unlock()
		panic(fmt.Sprintf("zkpath: deferred resolved twice (err=%v)", err))
	}
	d.val, d.err = val, err
	d.resolved = true
	conts := d.conts
	d.conts = nil
	close(d.done)
	d.mu.Unlock()

	for _, fn := range conts {
		fn(val, err)
	}
}

// Then attaches a continuation invoked with the terminal outcome. If the
// Deferred is already resolved the continuation runs before Then returns.
func (d *Deferred[T]) Then(fn func(val T, err error)) {
	d.mu.Lock()
	if !d.resolved {
		d.conts = append(d.conts, fn)
		d.mu.Unlock()
		return
	}
	val, err := d.val, d.err
	d.mu.Unlock()
	fn(val, err)
}

// Done is closed once the Deferred resolves.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Await blocks until the Deferred resolves or ctx is done.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.val, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
