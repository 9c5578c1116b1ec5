package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	iface "csvcore/pkg/api/transport"
	"csvcore/pkg/codec"
)

var _ iface.Writer = (*streamWriter)(nil)

// streamWriter buffers text for a blocking sink, optionally encoding it on the
// way out through a transform.Writer.
type streamWriter struct {
	buf       *bufio.Writer
	encoder   *transform.Writer
	sink      io.Writer
	leaveOpen bool
	logger    *slog.Logger
	closed    bool
}

// NewTextWriter wraps a blocking sink that accepts UTF-8 text.
func NewTextWriter(sink io.Writer, opts ...Option) (iface.Writer, error) {
	return NewEncodedWriter(sink, nil, opts...)
}

// NewEncodedWriter wraps a blocking sink of bytes in enc. A nil enc means UTF-8.
func NewEncodedWriter(sink io.Writer, enc encoding.Encoding, opts ...Option) (iface.Writer, error) {
	if sink == nil {
		return nil, ErrNilTransport
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	w := &streamWriter{sink: sink, leaveOpen: cfg.leaveOpen, logger: cfg.logger}
	out := sink
	if e := codec.NewEncoder(enc); !e.Passthrough() {
		w.encoder = transform.NewWriter(sink, e)
		out = w.encoder
	}
	w.buf = bufio.NewWriterSize(out, cfg.bufferSize)
	return w, nil
}

// Write implements iface.Writer.
func (w *streamWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

// WriteString implements iface.Writer.
func (w *streamWriter) WriteString(s string) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.buf.WriteString(s)
}

// WriteByte implements iface.Writer.
func (w *streamWriter) WriteByte(c byte) error {
	if w.closed {
		return ErrClosed
	}
	return w.buf.WriteByte(c)
}

// WriteRune implements iface.Writer.
func (w *streamWriter) WriteRune(r rune) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	return w.buf.WriteRune(r)
}

// WriteContext implements iface.Writer. A blocking sink cannot be
// interrupted, so ctx is checked before writing.
func (w *streamWriter) WriteContext(ctx context.Context, p []byte) error {
	if w.closed {
		return ErrClosed
	}
	if ctx.Err() != nil {
		return canceled(ctx)
	}
	_, err := w.buf.Write(p)
	return err
}

// Flush implements iface.Writer.
func (w *streamWriter) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return w.buf.Flush()
}

// Close implements iface.Writer.
func (w *streamWriter) Close() error {
	return w.CloseContext(context.Background())
}

// CloseContext implements iface.Writer. Staged output is flushed before the
// sink is released, and the sink is released even when flushing fails. The
// flush of a blocking sink cannot be interrupted, so ctx only scopes logging.
func (w *streamWriter) CloseContext(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.buf.Flush(); err != nil {
		errs = append(errs, err)
	}
	if w.encoder != nil {
		if err := w.encoder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := closeTransport(w.sink, w.leaveOpen); err != nil {
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if err != nil {
		w.logger.DebugContext(ctx, "writer close failed", slog.Any("error", err))
	}
	return err
}
