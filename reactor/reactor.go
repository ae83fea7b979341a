// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness reactor interface.

package reactor

import "errors"

// ErrClosed is returned by operations on a closed reactor.
var ErrClosed = errors.New("reactor: closed")

// FDEventType is a bit set of readiness conditions.
type FDEventType uint32

const (
	EventRead FDEventType = 1 << iota
	EventWrite
	EventError
	// EventOneShot disarms the descriptor after one notification until Rearm.
	EventOneShot
)

// FDCallback receives the descriptor and the conditions that fired.
type FDCallback func(fd uintptr, events FDEventType)

// Reactor multiplexes readiness for a set of descriptors.
type Reactor interface {
	// Register adds fd with the requested events.
	Register(fd uintptr, events FDEventType, cb FDCallback) error

	// Rearm re-enables a one-shot registration.
	Rearm(fd uintptr, events FDEventType) error

	// Unregister removes fd.
	Unregister(fd uintptr) error

	// Poll waits up to timeoutMs (negative blocks) and runs callbacks for
	// every fired descriptor. A Wake makes Poll return early.
	Poll(timeoutMs int) error

	// Wake interrupts a blocked Poll. Safe to call from any goroutine.
	Wake() error

	// Close releases OS resources.
	Close() error
}
