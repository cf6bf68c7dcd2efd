package sig

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonnyShabli/imgfetch/pkg/logster"
)

var ErrSignalReceived = errors.New("signal received")

// ListenSignal blocks until SIGINT/SIGTERM arrives or ctx is done.
// On a signal it calls cancel and returns ErrSignalReceived.
func ListenSignal(ctx context.Context, logger logster.Logger, cancel context.CancelFunc) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		return nil
	case s := <-sigCh:
		logger.Warnf("received signal %s, shutting down", s)
		cancel()
		return ErrSignalReceived
	}
}
