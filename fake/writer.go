// File: fake/writer.go
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"
	"time"
)

// Writer collects writes, optionally sleeping before each one to play a
// slow stdout consumer.
type Writer struct {
	mu    sync.Mutex
	buf   []byte
	calls int
	Delay time.Duration
	Err   error
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.Delay > 0 {
		time.Sleep(w.Delay)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.Err != nil {
		return 0, w.Err
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Bytes returns a copy of everything written.
func (w *Writer) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.buf...)
}

// Calls returns the number of Write calls.
func (w *Writer) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}
