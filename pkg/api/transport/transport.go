package transport

import (
	"context"
	"io"
)

// Reader is the pull side the CSV grammar consumes: valid UTF-8 text in
// caller-sized chunks.
type Reader interface {
	// Read fills p with the next characters. It returns 0 only together with
	// io.EOF once the transport is exhausted, or with an error.
	Read(p []byte) (int, error)

	// ReadContext is Read with cancellation observed at every point where the
	// transport may have to wait.
	ReadContext(ctx context.Context, p []byte) (int, error)

	// Close releases the transport and staging buffers. A second call is a no-op.
	Close() error
}

// Writer is the push side the field writer produces into.
type Writer interface {
	io.Writer
	io.StringWriter
	io.ByteWriter

	// WriteRune writes the UTF-8 encoding of r.
	WriteRune(r rune) (int, error)

	// WriteContext writes p, observing ctx wherever the sink may have to wait.
	WriteContext(ctx context.Context, p []byte) error

	// Flush pushes staged output to the sink.
	Flush() error

	// Close flushes staged output exactly once, then releases the sink.
	// A second call is a no-op.
	Close() error

	// CloseContext is Close with cancellation observed while flushing.
	CloseContext(ctx context.Context) error
}

// ChunkSource delivers already decoded text in chunks, possibly waiting for
// the next one. Next returns io.EOF after the last chunk. A returned chunk is
// only valid until the following call.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}
