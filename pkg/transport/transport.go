// Package transport adapts concrete transports to the Reader and Writer
// contracts of csvcore/pkg/api/transport.
//
// Every adapter returns valid UTF-8. Byte-sourced adapters decode through a
// codec.Bridge owned by the adapter; character-sourced adapters pass text
// through. A read never reports zero characters unless the transport is
// exhausted or failed.
//
// Sources that return neither data nor an error are retried, but not forever:
// after maxConsecutiveEmptyReads empty reads in a row the adapter stops and
// reports io.ErrNoProgress. That error is a transport fault and is sticky like
// any other; it is never reported as end of input. A source that stalls longer
// than that must block in Read instead of returning (0, nil).
//
// Adapters are not safe for concurrent use.
package transport

import (
	"context"
	"io"
)

const maxConsecutiveEmptyReads = 100

// fill reads into p, retrying reads that return neither data nor an error.
func fill(ctx context.Context, src io.Reader, p []byte) (int, error) {
	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		if ctx.Err() != nil {
			return 0, canceled(ctx)
		}
		n, err := src.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, io.ErrNoProgress
}

// closeTransport closes t when it is an io.Closer and the adapter owns it.
func closeTransport(t any, leaveOpen bool) error {
	if leaveOpen {
		return nil
	}
	if c, ok := t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
