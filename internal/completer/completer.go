// Package completer provides a one-shot result that is resolved exactly once
// and can be awaited by any number of goroutines.
package completer

import (
	"context"
	"sync"
)

// Completer holds a value or an error that is set once
type Completer[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New creates an unresolved completer
func New[T any]() *Completer[T] {
	return &Completer[T]{done: make(chan struct{})}
}

// Complete resolves with a value. It returns false if already resolved.
func (c *Completer[T]) Complete(value T) bool {
	resolved := false
	c.once.Do(func() {
		c.value = value
		close(c.done)
		resolved = true
	})
	return resolved
}

// Fail resolves with an error. It returns false if already resolved.
func (c *Completer[T]) Fail(err error) bool {
	resolved := false
	c.once.Do(func() {
		c.err = err
		close(c.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the completer is resolved
func (c *Completer[T]) Done() <-chan struct{} {
	return c.done
}

// IsCompleted reports whether the completer has been resolved
func (c *Completer[T]) IsCompleted() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value. Only valid after Done is closed.
func (c *Completer[T]) Result() (T, error) {
	<-c.done
	return c.value, c.err
}

// Wait blocks until the completer resolves or ctx is done
func (c *Completer[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
