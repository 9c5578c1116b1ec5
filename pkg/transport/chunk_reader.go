package transport

import (
	"context"
	"io"

	iface "csvcore/pkg/api/transport"
)

var _ iface.Reader = (*chunkReader)(nil)

// chunkReader serves text delivered chunk by chunk by a streaming source.
type chunkReader struct {
	src       iface.ChunkSource
	cur       []byte
	err       error
	leaveOpen bool
	closed    bool
}

// NewChunkReader wraps a streaming source of UTF-8 text chunks.
func NewChunkReader(src iface.ChunkSource, opts ...Option) (iface.Reader, error) {
	if src == nil {
		return nil, ErrNilTransport
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &chunkReader{src: src, leaveOpen: cfg.leaveOpen}, nil
}

// Read implements iface.Reader.
func (r *chunkReader) Read(p []byte) (int, error) {
	return r.ReadContext(context.Background(), p)
}

// ReadContext implements iface.Reader.
func (r *chunkReader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	empty := 0
	for len(r.cur) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if empty == maxConsecutiveEmptyReads {
			return 0, io.ErrNoProgress
		}
		chunk, err := r.src.Next(ctx)
		if err != nil {
			err = fromTransport(ctx, err)
			if errorsIsCanceled(err) {
				return 0, err
			}
			r.err = err
		}
		r.cur = chunk
		if len(chunk) == 0 {
			empty++
		}
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

// Close implements iface.Reader.
func (r *chunkReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.cur = nil
	return closeTransport(r.src, r.leaveOpen)
}

// channelSource adapts a channel of chunks.
type channelSource struct {
	ch <-chan []byte
}

// ChannelSource returns a ChunkSource receiving from ch. A closed channel ends the stream.
func ChannelSource(ch <-chan []byte) iface.ChunkSource {
	return &channelSource{ch: ch}
}

// Next implements iface.ChunkSource.
func (s *channelSource) Next(ctx context.Context) ([]byte, error) {
	select {
	case chunk, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	default:
	}
	select {
	case chunk, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
