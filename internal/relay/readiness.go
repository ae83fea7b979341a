// File: internal/relay/readiness.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package relay

import (
	"fmt"
	"sync"

	"github.com/momentics/wire/reactor"
)

// Readiness delivers socket readability to NetworkIO as channel events.
// After a signal, no further signal arrives until Arm is called.
type Readiness interface {
	// Ready yields nil when the socket became readable, or the error that
	// stopped the watcher.
	Ready() <-chan error
	// Arm requests the next notification.
	Arm() error
	// Close stops the watcher and releases its resources.
	Close() error
}

// reactorReadiness watches one descriptor with a one-shot epoll
// registration from a dedicated goroutine. It never touches the socket
// itself, only the descriptor number.
type reactorReadiness struct {
	re    reactor.Reactor
	fd    uintptr
	ready chan error
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

const watchEvents = reactor.EventRead | reactor.EventOneShot

func newReactorReadiness(fd uintptr) (*reactorReadiness, error) {
	re, err := reactor.New()
	if err != nil {
		return nil, fmt.Errorf("readiness: %w", err)
	}
	w := &reactorReadiness{
		re:    re,
		fd:    fd,
		ready: make(chan error, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if err := re.Register(fd, watchEvents, w.onEvent); err != nil {
		re.Close()
		return nil, fmt.Errorf("readiness: %w", err)
	}
	go w.loop()
	return w, nil
}

func (w *reactorReadiness) onEvent(_ uintptr, _ reactor.FDEventType) {
	// read, hang-up and error all mean the next drain has something to report
	w.signal(nil)
}

func (w *reactorReadiness) signal(err error) {
	select {
	case w.ready <- err:
	default:
	}
}

func (w *reactorReadiness) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		default:
		}
		if err := w.re.Poll(-1); err != nil {
			w.signal(err)
			return
		}
	}
}

func (w *reactorReadiness) Ready() <-chan error { return w.ready }

func (w *reactorReadiness) Arm() error {
	return w.re.Rearm(w.fd, watchEvents)
}

func (w *reactorReadiness) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		_ = w.re.Wake()
		<-w.done
		err = w.re.Close()
	})
	return err
}
