// internal/socket/socket_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connected TCP socket in non-blocking mode, driven with raw syscalls.

package socket

import (
	"errors"
	"fmt"
	"net"

	"github.com/momentics/wire/api"
	"golang.org/x/sys/unix"
)

var _ api.NetConn = (*Socket)(nil)

// Socket owns one connected stream socket in non-blocking mode.
// It is not safe for concurrent use.
type Socket struct {
	fd     int
	chunk  int
	remote *net.TCPAddr
	closed bool
}

// FromFD adopts a connected descriptor and switches it to non-blocking mode.
// The Socket takes ownership of fd.
func FromFD(fd int, opts ...Option) (*Socket, error) {
	if fd < 0 {
		return nil, fmt.Errorf("socket: fd %d: %w", fd, api.ErrInvalidArgument)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	s := &Socket{fd: fd, chunk: DefaultReadChunk}
	if sa, err := unix.Getpeername(fd); err == nil {
		s.remote = sockaddrToTCP(sa)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Write performs a single non-blocking write of p.
func (s *Socket) Write(p []byte) (int, error) {
	if s.closed {
		return 0, net.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.SendmsgN(s.fd, p, nil, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, api.ErrWriteWouldBlock
		case isPeerGone(err):
			return 0, fmt.Errorf("socket write: %w: %v", api.ErrPeerClosed, err)
		case err != nil:
			return 0, fmt.Errorf("socket write: %w", err)
		case n == 0:
			return 0, fmt.Errorf("socket write: %w", api.ErrPeerClosed)
		}
		return n, nil
	}
}

// DrainAvailable reads chunks until the socket would block and returns the
// bytes in arrival order. If the peer closed, the bytes read before EOF are
// returned together with api.ErrPeerClosed.
func (s *Socket) DrainAvailable() ([]byte, error) {
	if s.closed {
		return nil, net.ErrClosed
	}
	buf := make([]byte, s.chunk)
	var out []byte
	for {
		n, err := unix.Read(s.fd, buf)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return out, nil
		case isPeerGone(err):
			return out, fmt.Errorf("socket read: %w: %v", api.ErrPeerClosed, err)
		case err != nil:
			return out, fmt.Errorf("socket read: %w", err)
		case n == 0:
			return out, api.ErrPeerClosed
		}
		out = append(out, buf[:n]...)
	}
}

// IsReadable peeks one byte without blocking. Pending EOF counts as
// readable so that the following drain observes it.
func (s *Socket) IsReadable() (bool, error) {
	if s.closed {
		return false, net.ErrClosed
	}
	var b [1]byte
	for {
		_, _, err := unix.Recvfrom(s.fd, b[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
		switch {
		case err == nil:
			return true, nil
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return false, nil
		case isPeerGone(err):
			return false, fmt.Errorf("socket peek: %w: %v", api.ErrPeerClosed, err)
		default:
			return false, fmt.Errorf("socket peek: %w", err)
		}
	}
}

// BlockUntilReadable switches to blocking mode, waits for data or EOF with a
// peek, then restores non-blocking mode.
func (s *Socket) BlockUntilReadable() error {
	if s.closed {
		return net.ErrClosed
	}
	if err := unix.SetNonblock(s.fd, false); err != nil {
		return fmt.Errorf("set blocking: %w", err)
	}
	var b [1]byte
	var perr error
	for {
		_, _, perr = unix.Recvfrom(s.fd, b[:], unix.MSG_PEEK)
		if perr != unix.EINTR {
			break
		}
	}
	if err := unix.SetNonblock(s.fd, true); err != nil {
		return fmt.Errorf("restore nonblock: %w", err)
	}
	if perr != nil {
		if isPeerGone(perr) {
			return fmt.Errorf("socket peek: %w: %v", api.ErrPeerClosed, perr)
		}
		return fmt.Errorf("socket peek: %w", perr)
	}
	return nil
}

// Close closes the descriptor. Subsequent calls are no-ops.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

// RawFD returns the socket descriptor.
func (s *Socket) RawFD() uintptr { return uintptr(s.fd) }

// RemoteAddr returns the peer address, or nil for non-TCP peers.
func (s *Socket) RemoteAddr() net.Addr {
	if s.remote == nil {
		return nil
	}
	return s.remote
}

func isPeerGone(err error) bool {
	return errors.Is(err, unix.ECONNRESET) || errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ENOTCONN)
}

func sockaddrToTCP(sa unix.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]).To16(), Port: a.Port}
	case *unix.SockaddrInet6:
		addr := &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
		if a.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(a.ZoneId)); err == nil {
				addr.Zone = ifi.Name
			}
		}
		return addr
	}
	return nil
}
