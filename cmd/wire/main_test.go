package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/arduino/go-paths-helper"
	"github.com/momentics/wire/api"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		host    string
		port    int
		wantErr bool
	}{
		{"host and port", []string{"example.com", "7000"}, "example.com", 7000, false},
		{"zero port", []string{"localhost", "0"}, "localhost", 0, false},
		{"no args", nil, "", 0, true},
		{"one arg", []string{"localhost"}, "", 0, true},
		{"three args", []string{"a", "1", "b"}, "", 0, true},
		{"non-numeric port", []string{"localhost", "http"}, "", 0, true},
		{"port out of range", []string{"localhost", "65536"}, "", 0, true},
		{"negative port", []string{"localhost", "-1"}, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := parseArgs(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, api.ErrCodeUsage, api.CodeOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.host, host)
			require.Equal(t, tt.port, port)
		})
	}
}

func TestResolve(t *testing.T) {
	addr, err := resolve(context.Background(), "127.0.0.1", 80)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:80", addr.String())

	_, err = resolve(context.Background(), "no-such-host.invalid", 80)
	require.Error(t, err)
	require.Equal(t, api.ErrCodeUnresolved, api.CodeOf(err))
	require.Equal(t, 2, api.CodeOf(err).ExitCode())
}

func TestRun_UsageExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"no args", nil, 1, "Usage:\twire [host] [port]\n"},
		{"bad port", []string{"localhost", "port"}, 1, "Usage:\twire [host] [port]\n"},
		// ports outside 0-65535 are rejected before any lookup
		{"port above 65535", []string{"localhost", "65536"}, 1, "Usage:\twire [host] [port]\n"},
		{"unknown flag", []string{"-nope", "localhost", "1"}, 1, "Usage:\twire [host] [port]\n"},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "localhost", "1"}, 1, ""},
		{"unresolvable", []string{"no-such-host.invalid", "1"}, 2, "Could not resolve host no-such-host.invalid\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			require.Equal(t, tt.code, run(tt.args, &stdout, &stderr))
			if tt.msg != "" {
				require.Equal(t, tt.msg, stderr.String())
			}
			require.Empty(t, stdout.String())
		})
	}
}

func TestRun_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	var stdout, stderr bytes.Buffer
	require.Equal(t, 3, run([]string{"127.0.0.1", strconv.Itoa(port)}, &stdout, &stderr))
	require.Equal(t, "Could not establish connection\n", stderr.String())
}

// buildWire compiles the command into a temporary directory.
func buildWire(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary")
	}
	bin := filepath.Join(t.TempDir(), "wire")
	builder, err := paths.NewProcess(nil, "go", "build", "-o", bin, ".")
	require.NoError(t, err)
	require.NoError(t, builder.Run())
	return bin
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "unexpected error %v", err)
	return exitErr.ExitCode()
}

func TestBinary_UsageWithoutConnecting(t *testing.T) {
	bin := buildWire(t)

	proc, err := paths.NewProcess(nil, bin, "only-one-arg")
	require.NoError(t, err)
	stderr, err := proc.StderrPipe()
	require.NoError(t, err)
	require.NoError(t, proc.Start())
	msg, _ := io.ReadAll(stderr)
	require.Equal(t, 1, exitCode(t, proc.Wait()))
	require.Equal(t, "Usage:\twire [host] [port]\n", string(msg))
}

func TestBinary_RelaysUntilStdinCloses(t *testing.T) {
	bin := buildWire(t)

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	proc, err := paths.NewProcess(nil, bin, "127.0.0.1", port)
	require.NoError(t, err)
	stdin, err := proc.StdinPipe()
	require.NoError(t, err)
	stdout, err := proc.StdoutPipe()
	require.NoError(t, err)
	stderr, err := proc.StderrPipe()
	require.NoError(t, err)
	diag := make(chan []byte, 1)
	require.NoError(t, proc.Start())
	go func() {
		b, _ := io.ReadAll(stderr)
		diag <- b
	}()

	require.NoError(t, ln.SetDeadline(time.Now().Add(5*time.Second)))
	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("AB"))
	require.NoError(t, err)
	got := make([]byte, 2)
	_, err = io.ReadFull(stdout, got)
	require.NoError(t, err)
	require.Equal(t, "AB", string(got))

	_, err = stdin.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, stdin.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	sent, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, "hello", string(sent))

	require.Empty(t, string(<-diag), "clean end of input prints no diagnostic")
	require.Equal(t, 0, exitCode(t, proc.Wait()))
}

func TestBinary_PeerCloseExitsWithCode3(t *testing.T) {
	bin := buildWire(t)

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	proc, err := paths.NewProcess(nil, bin, "127.0.0.1", port)
	require.NoError(t, err)
	stdin, err := proc.StdinPipe()
	require.NoError(t, err)
	defer stdin.Close()
	stderr, err := proc.StderrPipe()
	require.NoError(t, err)
	require.NoError(t, proc.Start())

	require.NoError(t, ln.SetDeadline(time.Now().Add(5*time.Second)))
	conn, err := ln.Accept()
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	msg, _ := io.ReadAll(stderr)
	require.Equal(t, 3, exitCode(t, proc.Wait()))
	require.Equal(t, "Connection was closed\n", string(msg))
}
