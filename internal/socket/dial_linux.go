//go:build linux
// +build linux

// File: internal/socket/dial_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/momentics/wire/api"
	"github.com/momentics/wire/internal/logger"
	"golang.org/x/sys/unix"
)

// ErrConnectTimeout is returned when the handshake does not finish in time.
var ErrConnectTimeout = errors.New("connect timeout")

// Dial creates a non-blocking TCP socket and connects it to addr.
// A zero timeout waits indefinitely.
func Dial(addr *net.TCPAddr, timeout time.Duration, opts ...Option) (*Socket, error) {
	if addr == nil {
		return nil, fmt.Errorf("dial: nil address: %w", api.ErrInvalidArgument)
	}
	family, sa, err := tcpToSockaddr(addr)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		logger.L().Debug("socket: TCP_NODELAY not set", "remote", addr.String(), "error", err)
	}

	if err := connect(fd, sa, timeout); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	s := &Socket{fd: fd, chunk: DefaultReadChunk, remote: addr}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func connect(fd int, sa unix.Sockaddr, timeout time.Duration) error {
	err := unix.Connect(fd, sa)
	if err == unix.EINTR {
		// an interrupted connect keeps going in the background
		err = unix.EINPROGRESS
	}
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS {
		return err
	}

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		ms := -1
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return ErrConnectTimeout
			}
			ms = int(left / time.Millisecond)
			if ms == 0 {
				ms = 1
			}
		}
		n, perr := unix.Poll(fds, ms)
		if perr == unix.EINTR {
			continue
		}
		if perr != nil {
			return fmt.Errorf("poll: %w", perr)
		}
		if n > 0 {
			break
		}
	}

	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("getsockopt SO_ERROR: %w", err)
	}
	if soerr != 0 {
		return unix.Errno(soerr)
	}
	return nil
}

func tcpToSockaddr(addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return unix.AF_INET, sa, nil
	}
	ip6 := addr.IP.To16()
	if ip6 == nil {
		return 0, nil, fmt.Errorf("dial: bad address %q: %w", addr.IP, api.ErrInvalidArgument)
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], ip6)
	if addr.Zone != "" {
		ifi, err := net.InterfaceByName(addr.Zone)
		if err != nil {
			return 0, nil, fmt.Errorf("dial: zone %q: %w", addr.Zone, err)
		}
		sa.ZoneId = uint32(ifi.Index)
	}
	return unix.AF_INET6, sa, nil
}
