// File: internal/concurrency/group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"context"
	"sync"
)

// Group runs tasks that share one context. The first task that fails
// cancels the context with its error as the cause; Wait joins all tasks and
// returns that error.
type Group struct {
	wg     sync.WaitGroup
	cancel context.CancelCauseFunc
	mu     sync.Mutex
	err    error
}

// NewGroup derives the shared context from parent.
func NewGroup(parent context.Context) (*Group, context.Context) {
	ctx, cancel := context.WithCancelCause(parent)
	return &Group{cancel: cancel}, ctx
}

// Go starts fn in its own goroutine.
func (g *Group) Go(fn func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := fn(); err != nil {
			g.Fail(err)
		}
	}()
}

// Fail records err if it is the first failure and cancels the group.
func (g *Group) Fail(err error) {
	g.mu.Lock()
	if g.err == nil {
		g.err = err
	}
	g.mu.Unlock()
	g.cancel(err)
}

// Stop cancels the group without recording a failure.
func (g *Group) Stop() {
	g.cancel(nil)
}

// Err returns the first recorded failure.
func (g *Group) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Wait blocks until every task returned, then releases the context.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel(nil)
	return g.Err()
}
