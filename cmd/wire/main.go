// File: cmd/wire/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Command wire relays standard input to a TCP peer and the peer's bytes to
// standard output.
//
//	wire [-config file] [-raw] <host> <port>
//
// Exit status: 0 when input ended, 1 usage error, 2 unresolvable host,
// 3 connection could not be established or was lost.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/wire/api"
	"github.com/momentics/wire/control"
	"github.com/momentics/wire/internal/logger"
	"github.com/momentics/wire/internal/relay"
	"github.com/momentics/wire/internal/socket"
	"github.com/momentics/wire/internal/terminal"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wire", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", os.Getenv("WIRE_CONFIG"), "YAML configuration file")
	raw := fs.Bool("raw", false, "put a terminal stdin into raw mode")
	if err := fs.Parse(args); err != nil {
		return fail(stderr, usageError().Wrap(err))
	}

	host, port, err := parseArgs(fs.Args())
	if err != nil {
		return fail(stderr, err)
	}

	cfg := control.Default()
	if *configPath != "" {
		if cfg, err = control.Load(*configPath); err != nil {
			return fail(stderr, api.NewError(api.ErrCodeUsage, "Invalid configuration: "+err.Error()))
		}
	}
	if *raw {
		cfg.Terminal.Raw = true
	}

	logOut := stderr
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fail(stderr, api.NewError(api.ErrCodeUsage, "Cannot open log file "+cfg.Logging.File).Wrap(err))
		}
		defer f.Close()
		logOut = f
	}
	logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: logOut})
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr, err := resolve(ctx, host, port)
	if err != nil {
		return fail(stderr, err)
	}
	sock, err := socket.Dial(addr, cfg.Relay.ConnectTimeout, socket.WithReadChunk(cfg.Relay.ReadChunk))
	if err != nil {
		return fail(stderr, api.NewError(api.ErrCodeConnection, "Could not establish connection").Wrap(err))
	}
	log.Debug("connected", "remote", addr.String())

	stdin, err := terminal.Open(terminal.Options{Raw: cfg.Terminal.Raw})
	if err != nil {
		sock.Close()
		return fail(stderr, api.NewError(api.ErrCodeInternal, "Cannot open standard input").Wrap(err))
	}
	defer stdin.Close()
	if stdin.Raw() {
		log.Debug("terminal in raw mode")
	}

	r := relay.New(cfg.Relay, sock, stdin, stdout,
		relay.WithLogger(log),
		relay.WithStdinInterrupt(stdin.Interrupt))
	err = r.Run(ctx)
	log.Debug("relay metrics", slog.Any("metrics", r.Metrics().GetSnapshot()))

	switch {
	case err == nil:
		return 0
	case errors.Is(err, api.ErrPeerClosed):
		return fail(stderr, api.NewError(api.ErrCodeConnection, "Connection was closed").Wrap(err))
	default:
		return fail(stderr, api.NewError(api.ErrCodeConnection, "Connection failed: "+err.Error()).Wrap(err))
	}
}

// fail prints the one-line diagnostic for err and returns its exit code.
func fail(stderr io.Writer, err error) int {
	var e *api.Error
	if errors.As(err, &e) {
		fmt.Fprintln(stderr, e.Message)
		if e.Err != nil {
			logger.L().Debug("fatal", "code", int(e.Code), "cause", e.Err)
		}
		return e.Code.ExitCode()
	}
	fmt.Fprintln(stderr, err)
	return api.CodeOf(err).ExitCode()
}
