//go:build unix

// File: internal/terminal/terminal_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package terminal prepares the process's standard input for the relay:
// a private non-blocking descriptor that the Go poller can interrupt, and
// optional raw mode when stdin is a terminal.
package terminal

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Stdin is a readable handle on descriptor 0.
type Stdin struct {
	f        *os.File
	srcFD    int
	rawState *term.State
}

// Options select how stdin is prepared.
type Options struct {
	// Raw puts a terminal into raw mode so bytes are relayed as typed.
	Raw bool
}

// Open prepares fd 0 for reading. Terminals and pipes are reopened as a
// separate, non-blocking file description; fd 0's own description, which
// a shell usually shares with stdout and stderr, keeps its flags. Anything
// else is read through a plain blocking duplicate.
func Open(opts Options) (*Stdin, error) {
	return open(unix.Stdin, opts)
}

func open(srcFD int, opts Options) (*Stdin, error) {
	s := &Stdin{srcFD: srcFD}
	if opts.Raw && term.IsTerminal(srcFD) {
		st, err := term.MakeRaw(srcFD)
		if err != nil {
			return nil, fmt.Errorf("terminal raw mode: %w", err)
		}
		s.rawState = st
	}

	fd, err := reopen(srcFD)
	if err != nil {
		if fd, err = unix.Dup(srcFD); err != nil {
			s.restoreTerm()
			return nil, fmt.Errorf("dup stdin: %w", err)
		}
		unix.CloseOnExec(fd)
	}
	s.f = os.NewFile(uintptr(fd), "stdin")
	return s, nil
}

// reopen opens a new file description for a character device or FIFO
// behind srcFD. It fails when the platform hands back the same description
// (dup semantics), or when srcFD is a regular file or a socket, where a
// reopen would lose the offset or is not possible.
func reopen(srcFD int) (int, error) {
	var st unix.Stat_t
	if err := unix.Fstat(srcFD, &st); err != nil {
		return -1, err
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFCHR, unix.S_IFIFO:
	default:
		return -1, fmt.Errorf("stdin: not a terminal or pipe")
	}
	before, err := unix.FcntlInt(uintptr(srcFD), unix.F_GETFL, 0)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Open(fmt.Sprintf("/dev/fd/%d", srcFD),
		unix.O_RDONLY|unix.O_NONBLOCK|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	after, err := unix.FcntlInt(uintptr(srcFD), unix.F_GETFL, 0)
	if err != nil || after != before {
		unix.Close(fd)
		if err == nil {
			_ = unix.SetNonblock(srcFD, before&unix.O_NONBLOCK != 0)
		}
		return -1, fmt.Errorf("stdin: reopen shares the file description")
	}
	return fd, nil
}

// Read reads from standard input.
func (s *Stdin) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

// Interrupt makes a pending and every later Read return at once. It reports
// false when stdin is not pollable, e.g. a regular file.
func (s *Stdin) Interrupt() bool {
	return s.f.SetReadDeadline(time.Now()) == nil
}

// IsTerminal reports whether stdin is a terminal.
func (s *Stdin) IsTerminal() bool {
	return term.IsTerminal(s.srcFD)
}

// Raw reports whether raw mode was entered.
func (s *Stdin) Raw() bool { return s.rawState != nil }

// Close releases the private descriptor and restores terminal state.
func (s *Stdin) Close() error {
	err := s.f.Close()
	s.restoreTerm()
	return err
}

func (s *Stdin) restoreTerm() {
	if s.rawState != nil {
		_ = term.Restore(s.srcFD, s.rawState)
		s.rawState = nil
	}
}
