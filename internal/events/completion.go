package events

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled matches every *CancelledError.
var ErrCancelled = errors.New("cancelled")

// CancelledError is the error a cancelled Completion reports.
type CancelledError struct {
	Reason string
}

func (e *CancelledError) Error() string {
	if e.Reason == "" {
		return "cancelled"
	}
	return "cancelled: " + e.Reason
}

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// Outcome is the terminal state of a Completion.
type Outcome uint8

const (
	Unresolved Outcome = iota
	Resolved
	Cancelled
	Failed
)

// Completion is a single-assignment result cell.
type Completion[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	outcome Outcome
	value   T
	err     error
}

// NewCompletion returns an unresolved Completion.
func NewCompletion[T any]() *Completion[T] {
	return &Completion[T]{done: make(chan struct{})}
}

// Resolve settles c with v. It reports false if c was already settled.
func (c *Completion[T]) Resolve(v T) bool {
	return c.settle(Resolved, v, nil)
}

// Cancel settles c as cancelled with reason.
func (c *Completion[T]) Cancel(reason string) bool {
	var zero T
	return c.settle(Cancelled, zero, &CancelledError{Reason: reason})
}

// Fail settles c with err.
func (c *Completion[T]) Fail(err error) bool {
	if err == nil {
		err = errors.New("completion failed")
	}
	var zero T
	return c.settle(Failed, zero, err)
}

func (c *Completion[T]) settle(o Outcome, v T, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome != Unresolved {
		return false
	}
	c.outcome, c.value, c.err = o, v, err
	close(c.done)
	return true
}

// Done is closed once c settles.
func (c *Completion[T]) Done() <-chan struct{} { return c.done }

// Outcome reports how c settled, or Unresolved.
func (c *Completion[T]) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Wait blocks until c settles or ctx ends. A ctx that ends first leaves c
// unresolved and returns ctx.Err().
func (c *Completion[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
