// File: internal/relay/relay.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package relay runs the stdin <-> socket byte relay: a StdinReader, a
// NetworkIO owning the socket, and a Dispatcher bridging both to stdout,
// supervised as one unit with a single result.

package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/momentics/wire/api"
	"github.com/momentics/wire/control"
	"github.com/momentics/wire/internal/concurrency"
	"github.com/momentics/wire/internal/logger"
)

// Stats are updated by the workers while the relay runs.
type Stats struct {
	BytesOut       atomic.Int64 // written to the socket
	BytesIn        atomic.Int64 // read from the socket
	BytesDelivered atomic.Int64 // written to stdout
	OverflowPeak   atomic.Int64
}

func (s *Stats) observeOverflow(n int) {
	if v := int64(n); v > s.OverflowPeak.Load() {
		s.OverflowPeak.Store(v)
	}
}

// Relay wires the three workers around one connection.
type Relay struct {
	cfg       control.RelayConfig
	conn      api.NetConn
	stdin     io.Reader
	stdout    io.Writer
	log       *slog.Logger
	metrics   *control.MetricsRegistry
	ready     Readiness
	interrupt func() bool
	stats     Stats
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger; the default is logger.L().
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.log = l }
}

// WithMetrics publishes final counters into mr.
func WithMetrics(mr *control.MetricsRegistry) Option {
	return func(r *Relay) { r.metrics = mr }
}

// WithReadiness replaces the epoll watcher used in event mode.
func WithReadiness(rd Readiness) Option {
	return func(r *Relay) { r.ready = rd }
}

// WithStdinInterrupt installs a hook that unblocks a pending stdin read at
// shutdown. It returns false if it could not, in which case the reader is
// left to process exit.
func WithStdinInterrupt(fn func() bool) Option {
	return func(r *Relay) { r.interrupt = fn }
}

// New creates a relay over conn. The relay owns conn from now on.
func New(cfg control.RelayConfig, conn api.NetConn, stdin io.Reader, stdout io.Writer, opts ...Option) *Relay {
	if cfg.Capacity < 1 {
		cfg.Capacity = control.DefaultCapacity
	}
	if cfg.PollMode == "" {
		cfg.PollMode = control.PollEvent
	}
	r := &Relay{
		cfg:     cfg,
		conn:    conn,
		stdin:   stdin,
		stdout:  stdout,
		metrics: control.NewMetricsRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.L()
	}
	return r
}

// Run relays until stdin ends and every outbound byte reached the socket
// (nil), ctx is cancelled (nil), or a fatal condition stops a worker, which
// is returned. All workers are stopped and joined before Run returns; the
// stdin reader is joined only if the interrupt hook succeeds.
func (r *Relay) Run(ctx context.Context) error {
	busy := r.cfg.PollMode == control.PollBusy
	ready := r.ready
	if !busy && ready == nil {
		rd, err := newReactorReadiness(r.conn.RawFD())
		if err != nil {
			r.conn.Close()
			return err
		}
		ready = rd
	}
	if busy && ready != nil {
		ready.Close()
		ready = nil
	}

	g, gctx := concurrency.NewGroup(ctx)
	stdinQ := concurrency.NewUnbounded[byte](gctx)
	netQ := concurrency.NewUnbounded[byte](gctx)
	inbound := make(chan byte, r.cfg.Capacity)

	reader := NewStdinReader(r.stdin, stdinQ, r.cfg.Capacity, r.log)
	netio := NewNetworkIO(r.conn, netQ.Out(), inbound, ready, r.log, &r.stats)
	disp := NewDispatcher(stdinQ.Out(), netQ, inbound, r.stdout, r.cfg.Capacity, busy, r.log, &r.stats)

	r.log.Debug("relay started",
		"remote", r.conn.RemoteAddr(),
		"capacity", r.cfg.Capacity,
		"mode", r.cfg.PollMode)

	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		_ = reader.Run(gctx)
	}()
	g.Go(func() error { return netio.Run(gctx) })
	g.Go(func() error {
		err := disp.Run(gctx)
		g.Stop()
		return err
	})

	err := g.Wait()
	<-stdinQ.Done()
	<-netQ.Done()
	if r.interrupt != nil && r.interrupt() {
		<-stdinDone
	}

	r.publish(ctx, err, stdinQ.Peak())
	if err != nil {
		r.log.Debug("relay stopped", "cause", err)
	} else {
		r.log.Debug("relay stopped")
	}
	return err
}

// Stats returns the live counters.
func (r *Relay) Stats() *Stats { return &r.stats }

// Metrics returns the registry the final counters are published to.
func (r *Relay) Metrics() *control.MetricsRegistry { return r.metrics }

func (r *Relay) publish(ctx context.Context, err error, stdinPeak int) {
	r.metrics.Set(control.MetricBytesOut, r.stats.BytesOut.Load())
	r.metrics.Set(control.MetricBytesIn, r.stats.BytesIn.Load())
	r.metrics.Set(control.MetricBytesDelivered, r.stats.BytesDelivered.Load())
	r.metrics.Set(control.MetricOverflowPeak, r.stats.OverflowPeak.Load())
	r.metrics.Set(control.MetricStdinQueuePeak, int64(stdinPeak))
	cause := "stdin closed"
	switch {
	case errors.Is(err, api.ErrPeerClosed):
		cause = "peer closed"
	case err == nil && ctx.Err() != nil:
		cause = "cancelled"
	case err != nil:
		cause = err.Error()
	}
	r.metrics.Set(control.MetricShutdownCause, cause)
}
