//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "errors"

// New returns an error for unsupported platforms.
func New() (Reactor, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
