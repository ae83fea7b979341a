//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// epollReactor implements Reactor using Linux epoll.
type epollReactor struct {
	epfd      int      // epoll file descriptor
	wakefd    int      // eventfd used by Wake
	callbacks sync.Map // map[uintptr]FDCallback
	closed    atomic.Bool
}

// New creates an epoll reactor with its wake descriptor registered.
func New() (Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd create: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakefd: %w", err)
	}
	return &epollReactor{epfd: epfd, wakefd: wakefd}, nil
}

func toEpoll(events FDEventType) uint32 {
	var out uint32
	if events&EventRead != 0 {
		out |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if events&EventWrite != 0 {
		out |= unix.EPOLLOUT
	}
	if events&EventOneShot != 0 {
		out |= unix.EPOLLONESHOT
	}
	return out
}

func fromEpoll(events uint32) FDEventType {
	var out FDEventType
	if events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
		out |= EventRead
	}
	if events&unix.EPOLLOUT != 0 {
		out |= EventWrite
	}
	if events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		out |= EventError
	}
	return out
}

// Register adds a file descriptor to the epoll watch list.
func (r *epollReactor) Register(fd uintptr, events FDEventType, cb FDCallback) error {
	if r.closed.Load() {
		return ErrClosed
	}
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	r.callbacks.Store(fd, cb)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		r.callbacks.Delete(fd)
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Rearm re-enables a descriptor registered with EventOneShot.
func (r *epollReactor) Rearm(fd uintptr, events FDEventType) error {
	if r.closed.Load() {
		return ErrClosed
	}
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// Unregister removes a file descriptor from the epoll watch list.
func (r *epollReactor) Unregister(fd uintptr) error {
	if r.closed.Load() {
		return ErrClosed
	}
	r.callbacks.Delete(fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Poll blocks and waits for events on registered file descriptors.
// timeoutMs < 0 means block infinitely.
func (r *epollReactor) Poll(timeoutMs int) error {
	if r.closed.Load() {
		return ErrClosed
	}
	const maxEvents = 16
	var events [maxEvents]unix.EpollEvent
	timeout := timeoutMs
	if timeout < 0 {
		timeout = -1
	}

	n, err := unix.EpollWait(r.epfd, events[:], timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil // interrupted by signal, normal
		}
		return fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := events[i]
		if int(ev.Fd) == r.wakefd {
			r.drainWake()
			continue
		}
		fd := uintptr(ev.Fd)
		val, ok := r.callbacks.Load(fd)
		if !ok {
			continue
		}
		cb, _ := val.(FDCallback)
		// Use deferred recover to ensure reactor continuity on panics.
		func() {
			defer func() { _ = recover() }()
			cb(fd, fromEpoll(ev.Events))
		}()
	}
	return nil
}

// Wake makes a concurrent Poll return.
func (r *epollReactor) Wake() error {
	if r.closed.Load() {
		return ErrClosed
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(r.wakefd, buf[:])
	if err == unix.EAGAIN {
		// counter saturated, a wake is already pending
		return nil
	}
	if err != nil {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (r *epollReactor) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(r.wakefd, buf[:])
}

// Close releases the epoll and eventfd descriptors.
func (r *epollReactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	werr := unix.Close(r.wakefd)
	if err := unix.Close(r.epfd); err != nil {
		return fmt.Errorf("epoll close: %w", err)
	}
	if werr != nil {
		return fmt.Errorf("eventfd close: %w", werr)
	}
	return nil
}
