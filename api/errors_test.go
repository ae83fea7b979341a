package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/momentics/wire/api"
	"github.com/momentics/wire/fake"
	"github.com/stretchr/testify/require"
)

func TestNetConnCompliance(t *testing.T) {
	var _ api.NetConn = fake.NewConn()
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		code api.ErrorCode
		exit int
	}{
		{api.ErrCodeOK, 0},
		{api.ErrCodeUsage, 1},
		{api.ErrCodeUnresolved, 2},
		{api.ErrCodeConnection, 3},
		{api.ErrCodeInternal, 3},
	}
	for _, tt := range tests {
		require.Equal(t, tt.exit, tt.code.ExitCode(), "code %d", tt.code)
	}
}

func TestErrorWrapping(t *testing.T) {
	err := api.NewError(api.ErrCodeConnection, "Connection was closed").Wrap(api.ErrPeerClosed)
	wrapped := fmt.Errorf("relay: %w", err)

	require.True(t, errors.Is(wrapped, api.ErrPeerClosed))
	require.Equal(t, api.ErrCodeConnection, api.CodeOf(wrapped))
	require.Equal(t, "Connection was closed: connection was closed", err.Error())
}

func TestErrorContext(t *testing.T) {
	err := api.NewError(api.ErrCodeUsage, "bad").WithContext("port", "x")
	require.Contains(t, err.Error(), "port:x")
	require.Nil(t, errors.Unwrap(err))
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, api.ErrCodeOK, api.CodeOf(nil))
	require.Equal(t, api.ErrCodeInternal, api.CodeOf(errors.New("plain")))
}

func TestWouldBlock(t *testing.T) {
	require.True(t, api.IsWouldBlock(api.ErrWouldBlock))
	require.True(t, api.IsWouldBlock(api.ErrWriteWouldBlock))
	require.False(t, api.IsWouldBlock(api.ErrPeerClosed))
}
