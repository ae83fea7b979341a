//go:build linux
// +build linux

package relay

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/momentics/wire/api"
	"github.com/momentics/wire/control"
	"github.com/momentics/wire/fake"
	"github.com/momentics/wire/internal/logger"
	"github.com/momentics/wire/internal/socket"
	"github.com/stretchr/testify/require"
)

func TestRelay_LoopbackSocket(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)
			defer ln.Close()

			accepted := make(chan net.Conn, 1)
			go func() {
				c, err := ln.Accept()
				if err == nil {
					accepted <- c
				}
			}()

			sock, err := socket.Dial(ln.Addr().(*net.TCPAddr), time.Second, socket.WithReadChunk(3))
			require.NoError(t, err)
			peer := <-accepted
			defer peer.Close()

			pr, pw := io.Pipe()
			out := &fake.Writer{}
			r := New(control.RelayConfig{Capacity: 5, PollMode: mode}, sock, pr, out,
				WithLogger(logger.Discard()),
				WithStdinInterrupt(func() bool { pw.Close(); return true }))
			done := make(chan error, 1)
			go func() { done <- r.Run(context.Background()) }()

			_, err = pw.Write([]byte("hello"))
			require.NoError(t, err)
			buf := make([]byte, 5)
			require.NoError(t, peer.SetReadDeadline(time.Now().Add(5*time.Second)))
			_, err = io.ReadFull(peer, buf)
			require.NoError(t, err)
			require.Equal(t, "hello", string(buf))

			_, err = peer.Write([]byte{0x41, 0x42})
			require.NoError(t, err)
			require.Eventually(t, func() bool { return string(out.Bytes()) == "AB" }, 5*time.Second, time.Millisecond)

			require.NoError(t, peer.Close())
			select {
			case err := <-done:
				require.ErrorIs(t, err, api.ErrPeerClosed)
			case <-time.After(5 * time.Second):
				t.Fatal("relay did not stop after peer close")
			}
			require.Equal(t, "AB", string(out.Bytes()))
		})
	}
}

func TestRelay_LoopbackStdinEOF(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		b, _ := io.ReadAll(c)
		received <- b
	}()

	sock, err := socket.Dial(ln.Addr().(*net.TCPAddr), time.Second)
	require.NoError(t, err)

	pr, pw := io.Pipe()
	go func() {
		pw.Write([]byte("bye"))
		pw.Close()
	}()
	r := New(control.RelayConfig{Capacity: 5}, sock, pr, &fake.Writer{}, WithLogger(logger.Discard()))
	require.NoError(t, r.Run(context.Background()))

	select {
	case b := <-received:
		require.Equal(t, "bye", string(b))
	case <-time.After(5 * time.Second):
		t.Fatal("peer did not see EOF")
	}
}
