// File: internal/relay/stop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package relay

import (
	"errors"
	"log/slog"

	"github.com/momentics/wire/api"
)

// stopQuietly turns the conditions that end a worker without failing the
// relay into nil: end of input, and a queue whose other end is gone.
func stopQuietly(log *slog.Logger, worker string, err error) error {
	if errors.Is(err, api.ErrEndOfInput) || errors.Is(err, api.ErrChannelDisconnected) {
		log.Debug(worker+" stopped", "cause", err)
		return nil
	}
	return err
}

func orDisconnected(err error) error {
	if err == nil {
		return api.ErrChannelDisconnected
	}
	return err
}
