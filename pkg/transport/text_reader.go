package transport

import (
	"context"
	"io"

	iface "csvcore/pkg/api/transport"
)

var _ iface.Reader = (*textReader)(nil)

// textReader passes a character stream through unchanged.
type textReader struct {
	src       io.Reader
	leaveOpen bool
	err       error
	closed    bool
}

// NewTextReader wraps a blocking source of UTF-8 text.
func NewTextReader(src io.Reader, opts ...Option) (iface.Reader, error) {
	if src == nil {
		return nil, ErrNilTransport
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &textReader{src: src, leaveOpen: cfg.leaveOpen}, nil
}

// Read implements iface.Reader.
func (r *textReader) Read(p []byte) (int, error) {
	return r.ReadContext(context.Background(), p)
}

// ReadContext implements iface.Reader. A blocking source cannot be
// interrupted, so ctx is checked before each underlying read.
func (r *textReader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.err != nil {
		return 0, r.err
	}
	n, err := fill(ctx, r.src, p)
	if n > 0 {
		// report the error with the next call so data and failure stay distinct
		r.keep(err)
		return n, nil
	}
	r.keep(err)
	return 0, err
}

func (r *textReader) keep(err error) {
	if err != nil && !errorsIsCanceled(err) {
		r.err = err
	}
}

// Close implements iface.Reader.
func (r *textReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return closeTransport(r.src, r.leaveOpen)
}
