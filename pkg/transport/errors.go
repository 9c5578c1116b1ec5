package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every call on an adapter after Close.
	ErrClosed = errors.New("transport: adapter used after close")
	// ErrCanceled is matched by errors returned when cancellation is observed
	// while waiting on the transport. The context error is wrapped as well.
	ErrCanceled = errors.New("transport: operation canceled")
	// ErrPeerCompleted is returned when the other side of a pipe stopped consuming.
	ErrPeerCompleted = errors.New("transport: pipe peer completed")
	// ErrNilTransport is returned by constructors given a nil source or sink.
	ErrNilTransport = errors.New("transport: nil source or sink")

	errInvalidBufferSize = errors.New("transport: buffer size must be at least 64 bytes")
	errNilPipe           = errors.New("transport: nil pipe")
)

// canceled wraps the context's error so callers can match either ErrCanceled
// or context.Canceled / context.DeadlineExceeded.
func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
}

// fromTransport maps an error from a context-aware transport call. Context
// errors become cancellation faults; anything else passes through unchanged.
func fromTransport(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return canceled(ctx)
	}
	return err
}

func errorsIsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
