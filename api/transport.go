// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the socket abstraction consumed by the relay engine.

package api

import "net"

// NetConn abstracts one connected, non-blocking stream socket.
// Implementations are not safe for concurrent use; the relay gives the
// connection to a single goroutine.
type NetConn interface {
	// Write performs one non-blocking write. Would-block is surfaced as
	// ErrWouldBlock, never retried.
	Write(p []byte) (n int, err error)

	// DrainAvailable reads until the socket would block and returns
	// everything read, in arrival order.
	DrainAvailable() ([]byte, error)

	// IsReadable peeks without blocking.
	IsReadable() (bool, error)

	// BlockUntilReadable blocks until data or EOF is pending.
	BlockUntilReadable() error

	// Close shuts down the connection.
	Close() error

	// RawFD returns the underlying OS-level file descriptor.
	RawFD() uintptr

	// RemoteAddr returns the peer address, if known.
	RemoteAddr() net.Addr
}
