package concurrency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnbounded_FIFO(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	u := NewUnbounded[byte](ctx)

	// producer runs far ahead of the consumer without blocking
	const n = 10000
	for i := 0; i < n; i++ {
		u.In() <- byte(i)
	}
	u.Close()

	i := 0
	for v := range u.Out() {
		require.Equal(t, byte(i), v)
		i++
	}
	require.Equal(t, n, i)
	require.Zero(t, u.Len())
	require.Greater(t, u.Peak(), 1)

	select {
	case <-u.Done():
	case <-time.After(time.Second):
		t.Fatal("pump did not exit")
	}
}

func TestUnbounded_CloseEmpty(t *testing.T) {
	u := NewUnbounded[int](context.Background())
	u.Close()
	u.Close()
	_, ok := <-u.Out()
	require.False(t, ok)
}

func TestUnbounded_CancelStopsPump(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	u := NewUnbounded[int](ctx)
	u.In() <- 1
	cancel()
	select {
	case <-u.Done():
	case <-time.After(time.Second):
		t.Fatal("pump did not exit on cancel")
	}
}

func TestGroup_FirstErrorWins(t *testing.T) {
	g, ctx := NewGroup(context.Background())
	first := errors.New("first")

	g.Go(func() error { return first })
	g.Go(func() error {
		<-ctx.Done()
		return errors.New("second")
	})

	require.ErrorIs(t, g.Wait(), first)
	require.ErrorIs(t, context.Cause(ctx), first)
}

func TestGroup_StopIsNotFailure(t *testing.T) {
	g, ctx := NewGroup(context.Background())
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	g.Stop()
	require.NoError(t, g.Wait())
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestGroup_NilTasksDoNotCancel(t *testing.T) {
	g, ctx := NewGroup(context.Background())
	g.Go(func() error { return nil })
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ctx.Err())
	require.NoError(t, g.Wait())
}
