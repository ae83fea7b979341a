// File: internal/relay/stdin.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jpillora/backoff"
	"github.com/momentics/wire/api"
	"github.com/momentics/wire/internal/concurrency"
)

// StdinReader pushes every byte read from r onto the intake queue.
type StdinReader struct {
	r     io.Reader
	out   *concurrency.Unbounded[byte]
	size  int
	log   *slog.Logger
	retry *backoff.Backoff
}

// NewStdinReader reads r in chunks of size bytes.
func NewStdinReader(r io.Reader, out *concurrency.Unbounded[byte], size int, log *slog.Logger) *StdinReader {
	if size < 1 {
		size = 1
	}
	return &StdinReader{
		r:    r,
		out:  out,
		size: size,
		log:  log,
		retry: &backoff.Backoff{
			Min:    time.Millisecond,
			Max:    250 * time.Millisecond,
			Factor: 2,
		},
	}
}

// Run reads until end of input or cancellation and always returns nil. The
// intake queue is closed on return. Read errors other than EOF are retried.
func (s *StdinReader) Run(ctx context.Context) error {
	defer s.out.Close()
	buf := make([]byte, s.size)
	for {
		n, err := s.r.Read(buf)
		if n > 0 {
			s.retry.Reset()
			for _, b := range buf[:n] {
				select {
				case s.out.In() <- b:
				case <-ctx.Done():
					return nil
				}
			}
		}

		if cause := endOfInput(n, err); cause != nil {
			return stopQuietly(s.log, "stdin reader", cause)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		wait := s.retry.Duration()
		s.log.Debug("stdin: read failed, retrying", "error", err, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}
}

// endOfInput reports api.ErrEndOfInput, wrapping the read error if there is
// one, when a read result means no more input will come.
func endOfInput(n int, err error) error {
	switch {
	case err == nil && n == 0:
		return fmt.Errorf("zero-length read: %w", api.ErrEndOfInput)
	case errors.Is(err, api.ErrEndOfInput):
		return err
	case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed):
		return fmt.Errorf("%w: %v", api.ErrEndOfInput, err)
	}
	return nil
}
