// File: internal/concurrency/unbounded.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unbounded is a one-producer, one-consumer channel with no capacity limit.
// A pump goroutine moves values from In to Out through a ring queue, so a
// send on In is only delayed by the pump being scheduled.

package concurrency

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Unbounded adapts a pair of channels around an unbounded FIFO.
type Unbounded[T any] struct {
	in      chan T
	out     chan T
	done    chan struct{}
	pending atomic.Int64
	peak    atomic.Int64
	once    sync.Once
}

// NewUnbounded starts the pump. It stops when ctx is cancelled or after In
// is closed and every queued value has been received from Out; in the
// latter case Out is closed.
func NewUnbounded[T any](ctx context.Context) *Unbounded[T] {
	u := &Unbounded[T]{
		in:   make(chan T),
		out:  make(chan T),
		done: make(chan struct{}),
	}
	go u.pump(ctx)
	return u
}

// In returns the producer side.
func (u *Unbounded[T]) In() chan<- T { return u.in }

// Out returns the consumer side.
func (u *Unbounded[T]) Out() <-chan T { return u.out }

// Close closes the producer side. Safe to call more than once.
func (u *Unbounded[T]) Close() {
	u.once.Do(func() { close(u.in) })
}

// Done is closed when the pump has exited.
func (u *Unbounded[T]) Done() <-chan struct{} { return u.done }

// Len reports how many values are queued inside the adapter.
func (u *Unbounded[T]) Len() int { return int(u.pending.Load()) }

// Peak reports the highest Len observed.
func (u *Unbounded[T]) Peak() int { return int(u.peak.Load()) }

func (u *Unbounded[T]) pump(ctx context.Context) {
	defer close(u.done)
	buf := queue.New()
	in := u.in
	for {
		if buf.Length() == 0 {
			if in == nil {
				close(u.out)
				return
			}
			select {
			case v, ok := <-in:
				if !ok {
					in = nil
					continue
				}
				u.push(buf, v)
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case v, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			u.push(buf, v)
		case u.out <- buf.Peek().(T):
			buf.Remove()
			u.pending.Add(-1)
		case <-ctx.Done():
			return
		}
	}
}

func (u *Unbounded[T]) push(buf *queue.Queue, v T) {
	buf.Add(v)
	n := u.pending.Add(1)
	if n > u.peak.Load() {
		u.peak.Store(n)
	}
}
