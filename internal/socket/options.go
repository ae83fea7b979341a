// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package socket wraps one connected TCP socket in non-blocking mode for
// the relay engine.
package socket

// DefaultReadChunk is the read size used by DrainAvailable.
const DefaultReadChunk = 512

// Option configures a Socket.
type Option func(*Socket)

// WithReadChunk sets the DrainAvailable read size. Values below 1 are ignored.
func WithReadChunk(n int) Option {
	return func(s *Socket) {
		if n > 0 {
			s.chunk = n
		}
	}
}
