// File: internal/relay/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/momentics/wire/api"
	"github.com/momentics/wire/internal/concurrency"
)

// Dispatcher moves stdin bytes to NetworkIO and inbound bytes to stdout.
type Dispatcher struct {
	stdin    <-chan byte
	outbound *concurrency.Unbounded[byte]
	inbound  <-chan byte
	stdout   io.Writer
	busy     bool
	log      *slog.Logger
	stats    *Stats
	buf      []byte
}

// NewDispatcher builds a dispatcher. maxWrite bounds how many inbound bytes
// are batched into one stdout write.
func NewDispatcher(stdin <-chan byte, outbound *concurrency.Unbounded[byte], inbound <-chan byte, stdout io.Writer, maxWrite int, busy bool, log *slog.Logger, stats *Stats) *Dispatcher {
	if maxWrite < 1 {
		maxWrite = 1
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Dispatcher{
		stdin:    stdin,
		outbound: outbound,
		inbound:  inbound,
		stdout:   stdout,
		busy:     busy,
		log:      log,
		stats:    stats,
		buf:      make([]byte, 0, maxWrite),
	}
}

// Run returns nil once NetworkIO closed the inbound channel. A closed stdin
// queue closes the outbound queue and keeps the inbound side running until
// NetworkIO finishes. After ctx is cancelled Run only flushes inbound, so
// the producer of inbound must close it.
func (d *Dispatcher) Run(ctx context.Context) error {
	return stopQuietly(d.log, "dispatcher", d.run(ctx))
}

func (d *Dispatcher) run(ctx context.Context) error {
	stdin := d.stdin
	for {
		if d.busy {
			select {
			case <-ctx.Done():
				return d.flush()
			default:
			}
			select {
			case b, ok := <-stdin:
				if !ok {
					stdin = d.stdinClosed()
				} else if !d.toNetwork(ctx, b) {
					return d.flush()
				}
			default:
			}
			select {
			case b, ok := <-d.inbound:
				if !ok {
					return api.ErrChannelDisconnected
				}
				if done, err := d.toStdout(b); err != nil || done {
					return orDisconnected(err)
				}
			default:
			}
			runtime.Gosched()
			continue
		}

		select {
		case <-ctx.Done():
			return d.flush()
		case b, ok := <-stdin:
			if !ok {
				stdin = d.stdinClosed()
				continue
			}
			if !d.toNetwork(ctx, b) {
				return d.flush()
			}
		case b, ok := <-d.inbound:
			if !ok {
				return api.ErrChannelDisconnected
			}
			if done, err := d.toStdout(b); err != nil || done {
				return orDisconnected(err)
			}
		}
	}
}

// flush writes out everything NetworkIO handed over before it closed
// inbound.
func (d *Dispatcher) flush() error {
	for b := range d.inbound {
		if done, err := d.toStdout(b); err != nil || done {
			return orDisconnected(err)
		}
	}
	return api.ErrChannelDisconnected
}

func (d *Dispatcher) stdinClosed() <-chan byte {
	d.log.Debug("stdin closed, closing outbound queue")
	d.outbound.Close()
	return nil
}

func (d *Dispatcher) toNetwork(ctx context.Context, b byte) bool {
	select {
	case d.outbound.In() <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// toStdout writes b plus whatever else is already waiting on the inbound
// channel in one call. done reports that the channel was closed meanwhile.
func (d *Dispatcher) toStdout(b byte) (done bool, err error) {
	d.buf = append(d.buf[:0], b)
collect:
	for len(d.buf) < cap(d.buf) {
		select {
		case next, ok := <-d.inbound:
			if !ok {
				done = true
				break collect
			}
			d.buf = append(d.buf, next)
		default:
			break collect
		}
	}
	n, werr := d.stdout.Write(d.buf)
	d.stats.BytesDelivered.Add(int64(n))
	if werr != nil {
		return true, fmt.Errorf("dispatcher: %w after %d of %d bytes: %v", api.ErrStdout, n, len(d.buf), werr)
	}
	return done, nil
}
