//go:build !unix

// File: internal/terminal/terminal_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package terminal

import "os"

// Stdin wraps os.Stdin where descriptor tricks are unavailable.
type Stdin struct{}

type Options struct {
	Raw bool
}

// Open returns a plain stdin handle; Raw is ignored.
func Open(Options) (*Stdin, error) { return &Stdin{}, nil }

func (*Stdin) Read(p []byte) (int, error) { return os.Stdin.Read(p) }
func (*Stdin) Interrupt() bool            { return false }
func (*Stdin) IsTerminal() bool           { return false }
func (*Stdin) Raw() bool                  { return false }
func (*Stdin) Close() error               { return nil }
