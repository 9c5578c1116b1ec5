package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	iface "csvcore/pkg/api/transport"
	"csvcore/pkg/codec"
)

var _ iface.Writer = (*pipeWriter)(nil)

// pipeWriter encodes text into a pooled staging buffer and moves it into the
// pipe's writable region when the stage fills or on Flush.
type pipeWriter struct {
	pipe    iface.PipeWriter
	encoder *codec.Encoder
	stage   *[]byte
	staged  int

	// partial holds the leading bytes of a character split across writes.
	partial    [utf8.UTFMax]byte
	partialLen int

	leaveOpen bool
	logger    *slog.Logger
	closed    bool
}

// NewPipeWriter wraps the writing half of a byte pipe that carries bytes in enc.
// A nil enc means UTF-8.
func NewPipeWriter(pipe iface.PipeWriter, enc encoding.Encoding, opts ...Option) (iface.Writer, error) {
	if pipe == nil {
		return nil, errNilPipe
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &pipeWriter{
		pipe:      pipe,
		encoder:   codec.NewEncoder(enc),
		stage:     rentStage(cfg.bufferSize),
		leaveOpen: cfg.leaveOpen,
		logger:    cfg.logger,
	}, nil
}

// Write implements iface.Writer.
func (w *pipeWriter) Write(p []byte) (int, error) {
	if err := w.write(context.Background(), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteString implements iface.Writer.
func (w *pipeWriter) WriteString(s string) (int, error) {
	// the encoder only reads its source, so the string bytes are not copied
	return w.Write(unsafe.Slice(unsafe.StringData(s), len(s)))
}

// WriteByte implements iface.Writer.
func (w *pipeWriter) WriteByte(c byte) error {
	b := [1]byte{c}
	return w.write(context.Background(), b[:])
}

// WriteRune implements iface.Writer.
func (w *pipeWriter) WriteRune(r rune) (int, error) {
	var b [utf8.UTFMax]byte
	n := utf8.EncodeRune(b[:], r)
	return w.Write(b[:n])
}

// WriteContext implements iface.Writer.
func (w *pipeWriter) WriteContext(ctx context.Context, p []byte) error {
	return w.write(ctx, p)
}

func (w *pipeWriter) write(ctx context.Context, p []byte) error {
	if w.closed {
		return ErrClosed
	}
	if w.partialLen > 0 {
		need := sequenceLength(w.partial[0])
		take := min(need-w.partialLen, len(p))
		copy(w.partial[w.partialLen:], p[:take])
		w.partialLen += take
		p = p[take:]
		if w.partialLen < need {
			return nil
		}
		head := w.partial[:w.partialLen]
		w.partialLen = 0
		if err := w.encode(ctx, head, false); err != nil {
			return err
		}
		if w.partialLen > 0 {
			w.partialLen = 0
			return fmt.Errorf("%w: invalid UTF-8 sequence", codec.ErrUnencodable)
		}
	}
	return w.encode(ctx, p, false)
}

// encode stages the encoding of src, pushing full stages into the pipe.
func (w *pipeWriter) encode(ctx context.Context, src []byte, atEOF bool) error {
	stage := *w.stage
	for len(src) > 0 || atEOF {
		nDst, nSrc, err := w.encoder.Encode(stage[w.staged:], src, atEOF)
		w.staged += nDst
		src = src[nSrc:]
		switch {
		case err == nil:
			return nil
		case errors.Is(err, transform.ErrShortDst):
			if err := w.push(ctx); err != nil {
				return err
			}
		case errors.Is(err, transform.ErrShortSrc):
			w.partialLen = copy(w.partial[:], src)
			return nil
		default:
			return err
		}
	}
	return nil
}

// push copies the stage into the pipe and flushes it, waiting under backpressure.
func (w *pipeWriter) push(ctx context.Context) error {
	if w.staged > 0 {
		span := w.pipe.GetSpan(w.staged)
		n := copy(span, (*w.stage)[:w.staged])
		w.pipe.Advance(n)
		w.staged = 0
	}
	res, err := w.pipe.Flush(ctx)
	if err != nil {
		return fromTransport(ctx, err)
	}
	if res.Canceled {
		return fmt.Errorf("%w: pending flush released", ErrCanceled)
	}
	if res.Completed {
		return ErrPeerCompleted
	}
	return nil
}

// Flush implements iface.Writer.
func (w *pipeWriter) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return w.push(context.Background())
}

// Close implements iface.Writer.
func (w *pipeWriter) Close() error {
	return w.CloseContext(context.Background())
}

// CloseContext implements iface.Writer. Staged output, including any
// trailing partial character, reaches the pipe before it is completed.
func (w *pipeWriter) CloseContext(ctx context.Context) error {
	if w.closed {
		return nil
	}
	var errs []error
	if w.partialLen > 0 {
		head := w.partial[:w.partialLen]
		w.partialLen = 0
		if err := w.encode(ctx, head, true); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.encode(ctx, nil, true); err != nil {
		errs = append(errs, err)
	}
	if err := w.push(ctx); err != nil {
		errs = append(errs, err)
	}
	w.closed = true
	returnStage(w.stage)
	w.stage = nil
	if !w.leaveOpen {
		w.pipe.Complete(nil)
	}

	err := errors.Join(errs...)
	if err != nil {
		w.logger.DebugContext(ctx, "pipe writer close failed", slog.Any("error", err))
	}
	return err
}

// sequenceLength returns the length of the UTF-8 sequence led by b,
// or 1 for bytes that cannot lead one.
func sequenceLength(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}
