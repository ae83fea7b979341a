//go:build !linux
// +build !linux

// File: internal/socket/socket_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package socket

import (
	"net"
	"time"

	"github.com/momentics/wire/api"
)

// Socket is unavailable on this platform.
type Socket struct {
	chunk int
}

// FromFD returns api.ErrNotSupported.
func FromFD(int, ...Option) (*Socket, error) { return nil, api.ErrNotSupported }

// Dial returns api.ErrNotSupported.
func Dial(*net.TCPAddr, time.Duration, ...Option) (*Socket, error) {
	return nil, api.ErrNotSupported
}

func (*Socket) Write([]byte) (int, error)       { return 0, api.ErrNotSupported }
func (*Socket) DrainAvailable() ([]byte, error) { return nil, api.ErrNotSupported }
func (*Socket) IsReadable() (bool, error)       { return false, api.ErrNotSupported }
func (*Socket) BlockUntilReadable() error       { return api.ErrNotSupported }
func (*Socket) Close() error                    { return nil }
func (*Socket) RawFD() uintptr                  { return ^uintptr(0) }
func (*Socket) RemoteAddr() net.Addr            { return nil }
