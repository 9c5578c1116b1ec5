package transport

import "context"

// ReadResult is a view of the bytes buffered in a pipe.
type ReadResult struct {
	// Buffer holds every unread byte. It stays valid until AdvanceTo.
	Buffer []byte
	// Completed reports that the writer finished and Buffer holds the last bytes.
	Completed bool
	// Canceled reports that the pending read was released by CancelPendingRead.
	Canceled bool
}

// FlushResult reports the state of a pipe after Flush.
type FlushResult struct {
	// Completed reports that the reader will not consume any more bytes.
	Completed bool
	// Canceled reports that the pending flush was released by CancelPendingFlush.
	Canceled bool
}

// PipeReader is the consuming half of a backpressure-aware byte pipe.
//
// Every read must be acknowledged with AdvanceTo before the next one. Bytes up
// to consumed are released; bytes up to examined were inspected, and when
// examined covers the whole view the next Read waits for new bytes.
type PipeReader interface {
	// TryRead returns the buffered view without waiting, if one is available.
	TryRead() (ReadResult, bool)
	// Read waits until bytes are buffered, the writer completes, or ctx is done.
	Read(ctx context.Context) (ReadResult, error)
	AdvanceTo(consumed, examined int)
	// Complete tells the writer no more bytes will be read.
	Complete(err error)
}

// PipeWriter is the producing half of a backpressure-aware byte pipe.
type PipeWriter interface {
	// GetSpan returns a writable region of at least sizeHint bytes.
	GetSpan(sizeHint int) []byte
	// Advance commits n bytes written into the last span.
	Advance(n int)
	// Flush makes committed bytes visible to the reader and waits while the
	// reader is behind by more than the pause threshold.
	Flush(ctx context.Context) (FlushResult, error)
	// Complete tells the reader no more bytes will be written.
	Complete(err error)
}
