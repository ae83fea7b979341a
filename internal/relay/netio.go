// File: internal/relay/netio.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NetworkIO owns the socket. Outbound bytes are written one at a time as
// they arrive; inbound bytes are drained in batches into an unbounded
// overflow FIFO and offered, oldest first, to the bounded inbound channel.
// The channel only signals backpressure; the overflow FIFO absorbs it.

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/eapache/queue"
	"github.com/momentics/wire/api"
)

// NetworkIO is the only goroutine that touches the connection.
type NetworkIO struct {
	conn     api.NetConn
	outbound <-chan byte
	inbound  chan<- byte
	overflow *queue.Queue
	ready    Readiness // nil in busy mode
	log      *slog.Logger
	stats    *Stats
	wbuf     [1]byte
}

// NewNetworkIO takes ownership of conn and ready; both are closed when Run
// returns, and so is inbound.
func NewNetworkIO(conn api.NetConn, outbound <-chan byte, inbound chan<- byte, ready Readiness, log *slog.Logger, stats *Stats) *NetworkIO {
	if stats == nil {
		stats = &Stats{}
	}
	return &NetworkIO{
		conn:     conn,
		outbound: outbound,
		inbound:  inbound,
		overflow: queue.New(),
		ready:    ready,
		log:      log,
		stats:    stats,
	}
}

// Run relays until the outbound queue closes (nil), ctx is cancelled (nil)
// or the socket fails (error). Bytes already read from the socket are
// delivered downstream before Run returns, unless ctx is cancelled first.
func (n *NetworkIO) Run(ctx context.Context) error {
	defer close(n.inbound)
	defer n.conn.Close()
	var err error
	if n.ready != nil {
		defer n.ready.Close()
		err = n.runEvent(ctx)
	} else {
		err = n.runBusy(ctx)
	}
	return stopQuietly(n.log, "netio", err)
}

// runBusy is the reference loop: three non-blocking phases per pass and no
// waiting between passes.
func (n *NetworkIO) runBusy(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		select {
		case b, ok := <-n.outbound:
			if !ok {
				return n.finish(ctx, api.ErrChannelDisconnected)
			}
			if err := n.writeOutbound(b); err != nil {
				return err
			}
		default:
		}

		if err := n.pollInbound(); err != nil {
			return n.finish(ctx, err)
		}
		n.forward()
		runtime.Gosched()
	}
}

// runEvent suspends until one of: an outbound byte, socket readability, room
// in the inbound channel for the overflow head, or cancellation.
func (n *NetworkIO) runEvent(ctx context.Context) error {
	for {
		var sendCh chan<- byte
		var head byte
		if n.overflow.Length() > 0 {
			sendCh = n.inbound
			head = n.overflow.Peek().(byte)
		}

		select {
		case <-ctx.Done():
			return nil

		case b, ok := <-n.outbound:
			if !ok {
				return n.finish(ctx, api.ErrChannelDisconnected)
			}
			if err := n.writeOutbound(b); err != nil {
				return err
			}

		case err := <-n.ready.Ready():
			if err != nil {
				return fmt.Errorf("netio: %w", err)
			}
			if err := n.pollInbound(); err != nil {
				return n.finish(ctx, err)
			}
			n.forward()
			if err := n.ready.Arm(); err != nil {
				return fmt.Errorf("netio: %w", err)
			}

		case sendCh <- head:
			n.overflow.Remove()
			n.forward()
		}
	}
}

func (n *NetworkIO) writeOutbound(b byte) error {
	n.wbuf[0] = b
	if _, err := n.conn.Write(n.wbuf[:]); err != nil {
		n.log.Debug("socket write failed", "error", err)
		return fmt.Errorf("netio: %w", err)
	}
	n.stats.BytesOut.Add(1)
	return nil
}

// pollInbound moves every byte the socket has ready into the overflow
// buffer. Bytes read before a failure are kept.
func (n *NetworkIO) pollInbound() error {
	readable, err := n.conn.IsReadable()
	if err != nil {
		return fmt.Errorf("netio: %w", err)
	}
	if !readable {
		return nil
	}
	data, err := n.conn.DrainAvailable()
	for _, b := range data {
		n.overflow.Add(b)
	}
	if len(data) > 0 {
		n.stats.BytesIn.Add(int64(len(data)))
		n.stats.observeOverflow(n.overflow.Length())
	}
	if err != nil {
		return fmt.Errorf("netio: %w", err)
	}
	return nil
}

// forward offers overflow bytes to the inbound channel until it is full.
// A byte leaves the overflow only once the channel accepted it.
func (n *NetworkIO) forward() {
	for n.overflow.Length() > 0 {
		select {
		case n.inbound <- n.overflow.Peek().(byte):
			n.overflow.Remove()
		default:
			return
		}
	}
}

// finish delivers what is left in the overflow, then reports cause.
func (n *NetworkIO) finish(ctx context.Context, cause error) error {
	if cause != nil {
		n.log.Debug("netio stopping", "cause", cause, "pending", n.overflow.Length())
	}
	for n.overflow.Length() > 0 {
		select {
		case n.inbound <- n.overflow.Peek().(byte):
			n.overflow.Remove()
		case <-ctx.Done():
			return cause
		}
	}
	return cause
}

// Pending reports how many bytes wait in the overflow buffer. Only safe from
// the goroutine running Run, or after it returned.
func (n *NetworkIO) Pending() int { return n.overflow.Length() }
