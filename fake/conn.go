// File: fake/conn.go
// Author: momentics <momentics@gmail.com>

package fake

import (
	"net"
	"sync"
	"time"

	"github.com/momentics/wire/api"
)

var _ api.NetConn = (*Conn)(nil)

// Conn is an in-memory api.NetConn. The test plays the peer with Feed and
// ClosePeer and inspects Written.
type Conn struct {
	mu         sync.Mutex
	pending    []byte
	written    []byte
	peerClosed bool
	closed     bool
	writeErr   error
	drainLimit int

	armed bool
	ready chan error
}

// NewConn returns an open connection whose readiness source starts armed.
func NewConn() *Conn {
	return &Conn{armed: true, ready: make(chan error, 1)}
}

// Feed queues bytes as if the peer sent them.
func (c *Conn) Feed(p []byte) {
	c.mu.Lock()
	c.pending = append(c.pending, p...)
	c.mu.Unlock()
	c.notify()
}

// ClosePeer simulates the peer closing its side.
func (c *Conn) ClosePeer() {
	c.mu.Lock()
	c.peerClosed = true
	c.mu.Unlock()
	c.notify()
}

// FailWrites makes every following Write return err.
func (c *Conn) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// LimitDrain caps how many bytes one DrainAvailable call returns, so that
// arrival is split across several drains. Zero removes the cap.
func (c *Conn) LimitDrain(n int) {
	c.mu.Lock()
	c.drainLimit = n
	c.mu.Unlock()
}

// Written returns a copy of everything written so far.
func (c *Conn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written...)
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.peerClosed {
		return 0, api.ErrPeerClosed
	}
	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *Conn) DrainAvailable() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, net.ErrClosed
	}
	n := len(c.pending)
	if c.drainLimit > 0 && n > c.drainLimit {
		n = c.drainLimit
	}
	out := append([]byte(nil), c.pending[:n]...)
	c.pending = c.pending[n:]
	if c.peerClosed && len(c.pending) == 0 {
		return out, api.ErrPeerClosed
	}
	return out, nil
}

func (c *Conn) IsReadable() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, net.ErrClosed
	}
	return len(c.pending) > 0 || c.peerClosed, nil
}

func (c *Conn) BlockUntilReadable() error {
	for {
		ok, err := c.IsReadable()
		if err != nil || ok {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Conn) RawFD() uintptr { return ^uintptr(0) }

func (c *Conn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9}
}

// Readiness returns the readiness source paired with this connection.
func (c *Conn) Readiness() *Readiness { return &Readiness{c: c} }

func (c *Conn) notify() {
	c.mu.Lock()
	fire := c.armed && (len(c.pending) > 0 || c.peerClosed)
	if fire {
		c.armed = false
	}
	c.mu.Unlock()
	if fire {
		select {
		case c.ready <- nil:
		default:
		}
	}
}

// Readiness signals when the fake peer made data or EOF available.
type Readiness struct {
	c *Conn
}

func (r *Readiness) Ready() <-chan error { return r.c.ready }

func (r *Readiness) Arm() error {
	r.c.mu.Lock()
	r.c.armed = true
	r.c.mu.Unlock()
	r.c.notify()
	return nil
}

func (r *Readiness) Close() error { return nil }
