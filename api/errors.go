// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by the socket layer, the relay workers and the CLI.

package api

import (
	"errors"
	"fmt"
)

// Conditions raised inside the relay core.
var (
	// ErrWouldBlock reports that a non-blocking call found nothing to do.
	// It is never fatal.
	ErrWouldBlock = errors.New("operation would block")

	// ErrWriteWouldBlock is returned when the socket refuses a write because
	// its send buffer is full. The relay treats it as fatal.
	ErrWriteWouldBlock = fmt.Errorf("socket write: %w", ErrWouldBlock)

	// ErrEndOfInput reports that standard input reached EOF.
	ErrEndOfInput = errors.New("end of input")

	// ErrPeerClosed reports that the remote side closed the connection.
	ErrPeerClosed = errors.New("connection was closed")

	// ErrChannelDisconnected reports that the other end of a queue is gone.
	ErrChannelDisconnected = errors.New("channel disconnected")

	// ErrStdout reports that standard output can no longer be written.
	ErrStdout = errors.New("stdout write failed")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("operation not supported")
)

// ErrorCode classifies startup failures.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeUsage
	ErrCodeUnresolved
	ErrCodeConnection
	ErrCodeInternal
)

// ExitCode maps an error code to the process exit status.
func (c ErrorCode) ExitCode() int {
	switch c {
	case ErrCodeOK:
		return 0
	case ErrCodeUsage:
		return 1
	case ErrCodeUnresolved:
		return 2
	case ErrCodeConnection:
		return 3
	default:
		return 3
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Context) > 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap attaches a cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// CodeOf extracts the code from err. Unknown errors report ErrCodeInternal,
// nil reports ErrCodeOK.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsWouldBlock reports whether err is a would-block condition.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}
