package transport

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/text/encoding"

	iface "csvcore/pkg/api/transport"
	"csvcore/pkg/codec"
)

var _ iface.Reader = (*pipeReader)(nil)

// pipeReader pulls characters out of a push-style byte pipe. Each read
// decodes straight from the pipe's view into the caller's buffer and reports
// consumed and examined bytes back, so the only copy is the decode itself.
type pipeReader struct {
	pipe      iface.PipeReader
	bridge    *codec.Bridge
	err       error
	leaveOpen bool
	closed    bool
}

// NewPipeReader wraps the reading half of a byte pipe carrying bytes in enc.
// A nil enc means UTF-8.
func NewPipeReader(pipe iface.PipeReader, enc encoding.Encoding, opts ...Option) (iface.Reader, error) {
	if pipe == nil {
		return nil, errNilPipe
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	bridge, err := newBridge(enc, cfg)
	if err != nil {
		return nil, err
	}
	return &pipeReader{pipe: pipe, bridge: bridge, leaveOpen: cfg.leaveOpen}, nil
}

// Read implements iface.Reader.
func (r *pipeReader) Read(p []byte) (int, error) {
	return r.ReadContext(context.Background(), p)
}

// ReadContext implements iface.Reader.
func (r *pipeReader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.err != nil {
		return 0, r.err
	}

	for {
		res, ok := r.pipe.TryRead()
		if !ok {
			var err error
			if res, err = r.pipe.Read(ctx); err != nil {
				err = fromTransport(ctx, err)
				if !errorsIsCanceled(err) {
					r.err = err
				}
				return 0, err
			}
		}
		if res.Canceled {
			return 0, fmt.Errorf("%w: pending read released", ErrCanceled)
		}

		prog, err := r.bridge.Decode(p, res.Buffer, res.Completed)
		if err != nil {
			r.pipe.AdvanceTo(prog.Consumed, prog.Consumed)
			r.err = err
			if prog.Produced > 0 {
				return prog.Produced, nil
			}
			return 0, err
		}
		r.pipe.AdvanceTo(prog.Consumed, prog.Examined)

		if prog.Produced > 0 {
			return prog.Produced, nil
		}
		if prog.Complete {
			r.err = io.EOF
			return 0, io.EOF
		}
		if res.Completed {
			r.err = io.ErrUnexpectedEOF
			return 0, r.err
		}
	}
}

// Close implements iface.Reader. The pipe is told no more bytes will be read.
func (r *pipeReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.bridge.Reset()
	if !r.leaveOpen {
		r.pipe.Complete(nil)
	}
	return nil
}
