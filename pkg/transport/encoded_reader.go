package transport

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/text/encoding"

	iface "csvcore/pkg/api/transport"
	"csvcore/pkg/codec"
)

var _ iface.Reader = (*encodedReader)(nil)

// encodedReader decodes a blocking byte stream. Bytes read from the source are
// staged until the bridge consumes them; an incomplete trailing sequence stays
// at the front of the stage and is decoded together with the next read.
type encodedReader struct {
	src       io.Reader
	bridge    *codec.Bridge
	stage     *[]byte
	lo, hi    int
	srcEOF    bool
	srcErr    error
	err       error
	leaveOpen bool
	logger    *slog.Logger
	closed    bool
}

// NewEncodedReader wraps a blocking source of bytes in enc. A nil enc means UTF-8.
func NewEncodedReader(src io.Reader, enc encoding.Encoding, opts ...Option) (iface.Reader, error) {
	if src == nil {
		return nil, ErrNilTransport
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	bridge, err := newBridge(enc, cfg)
	if err != nil {
		return nil, err
	}
	return &encodedReader{
		src:       src,
		bridge:    bridge,
		stage:     rentStage(cfg.bufferSize),
		leaveOpen: cfg.leaveOpen,
		logger:    cfg.logger,
	}, nil
}

func newBridge(enc encoding.Encoding, cfg config) (*codec.Bridge, error) {
	var opts []codec.BridgeOption
	if cfg.substitute {
		opts = append(opts, codec.WithSubstitution())
	}
	return codec.NewBridge(enc, opts...)
}

// Read implements iface.Reader.
func (r *encodedReader) Read(p []byte) (int, error) {
	return r.ReadContext(context.Background(), p)
}

// ReadContext implements iface.Reader.
func (r *encodedReader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.err != nil {
		return 0, r.err
	}

	stage := *r.stage
	for {
		prog, err := r.bridge.Decode(p, stage[r.lo:r.hi], r.srcEOF)
		r.lo += prog.Consumed
		if err != nil {
			r.err = err
			r.logger.DebugContext(ctx, "decode failed", slog.Any("error", err))
			if prog.Produced > 0 {
				return prog.Produced, nil
			}
			return 0, err
		}
		if prog.Produced > 0 {
			return prog.Produced, nil
		}
		if prog.Complete {
			r.err = io.EOF
			return 0, io.EOF
		}
		if r.srcErr != nil {
			r.err = r.srcErr
			return 0, r.srcErr
		}
		if r.srcEOF {
			r.err = io.ErrUnexpectedEOF
			return 0, r.err
		}

		// keep the unconsumed tail and refill behind it
		r.hi = copy(stage, stage[r.lo:r.hi])
		r.lo = 0
		n, err := fill(ctx, r.src, stage[r.hi:])
		r.hi += n
		switch {
		case err == io.EOF:
			r.srcEOF = true
		case errorsIsCanceled(err):
			return 0, err
		case err != nil:
			r.srcErr = err
		}
	}
}

// Close implements iface.Reader.
func (r *encodedReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.bridge.Reset()
	returnStage(r.stage)
	r.stage = nil
	return closeTransport(r.src, r.leaveOpen)
}
