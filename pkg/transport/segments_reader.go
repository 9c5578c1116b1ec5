package transport

import (
	"context"
	"io"

	"golang.org/x/text/encoding"

	iface "csvcore/pkg/api/transport"
	"csvcore/pkg/codec"
)

var (
	_ iface.Reader = (*segmentsReader)(nil)
	_ io.WriterTo  = (*segmentsReader)(nil)
	_ iface.Reader = (*encodedSegmentsReader)(nil)
)

// segments walks an immutable sequence of byte slices.
type segments struct {
	segs [][]byte
	idx  int
	off  int
	// lastData is the index of the last non-empty segment.
	lastData int
}

func newSegments(segs [][]byte) segments {
	last := -1
	for i, s := range segs {
		if len(s) > 0 {
			last = i
		}
	}
	return segments{segs: segs, lastData: last}
}

// current returns the unread part of the current segment, skipping empty ones.
func (s *segments) current() []byte {
	for s.idx < len(s.segs) && s.off == len(s.segs[s.idx]) {
		s.idx++
		s.off = 0
	}
	if s.idx == len(s.segs) {
		return nil
	}
	return s.segs[s.idx][s.off:]
}

// final reports whether no data follows the current segment.
func (s *segments) final() bool {
	return s.idx >= s.lastData
}

func (s *segments) advance(n int) {
	for n > 0 && s.idx < len(s.segs) {
		rest := len(s.segs[s.idx]) - s.off
		if n < rest {
			s.off += n
			return
		}
		n -= rest
		s.idx++
		s.off = 0
	}
}

// segmentsReader serves an in-memory character sequence.
type segmentsReader struct {
	seq    segments
	closed bool
}

// NewSegmentsReader serves UTF-8 text held in memory as one or more segments.
// The segments must not be modified while the reader is in use.
func NewSegmentsReader(segs ...[]byte) iface.Reader {
	return &segmentsReader{seq: newSegments(segs)}
}

// NewStringReader serves s.
func NewStringReader(s string) iface.Reader {
	return NewSegmentsReader([]byte(s))
}

// Read implements iface.Reader.
func (r *segmentsReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		cur := r.seq.current()
		if cur == nil {
			break
		}
		c := copy(p[n:], cur)
		r.seq.advance(c)
		n += c
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadContext implements iface.Reader. Memory never blocks, so ctx is unused.
func (r *segmentsReader) ReadContext(_ context.Context, p []byte) (int, error) {
	return r.Read(p)
}

// WriteTo hands each remaining segment to w without copying it first.
func (r *segmentsReader) WriteTo(w io.Writer) (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	var total int64
	for {
		cur := r.seq.current()
		if cur == nil {
			return total, nil
		}
		n, err := w.Write(cur)
		r.seq.advance(n)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

// Close implements iface.Reader.
func (r *segmentsReader) Close() error {
	r.closed = true
	r.seq = segments{}
	return nil
}

// stitchSize bounds the bytes copied across a segment boundary so that a
// character split between segments can be decoded in one piece.
const stitchSize = 32

// encodedSegmentsReader decodes an in-memory byte sequence. Segments are fed
// to the bridge directly; only a character split across a boundary is copied.
type encodedSegmentsReader struct {
	seq        segments
	bridge     *codec.Bridge
	stitch     [stitchSize]byte
	needStitch bool
	err        error
	closed     bool
}

// NewEncodedSegmentsReader serves bytes in enc held in memory as segments.
// A nil enc means UTF-8.
func NewEncodedSegmentsReader(enc encoding.Encoding, segs [][]byte, opts ...Option) (iface.Reader, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	bridge, err := newBridge(enc, cfg)
	if err != nil {
		return nil, err
	}
	return &encodedSegmentsReader{seq: newSegments(segs), bridge: bridge}, nil
}

// view returns the bytes to decode next and whether they end the sequence.
func (r *encodedSegmentsReader) view() ([]byte, bool) {
	cur := r.seq.current()
	if !r.needStitch || r.seq.final() {
		return cur, r.seq.final()
	}
	n := copy(r.stitch[:], cur)
	all := true
	for j := r.seq.idx + 1; j < len(r.seq.segs); j++ {
		c := copy(r.stitch[n:], r.seq.segs[j])
		n += c
		if c < len(r.seq.segs[j]) {
			all = false
			break
		}
	}
	return r.stitch[:n], all
}

// Read implements iface.Reader.
func (r *encodedSegmentsReader) Read(p []byte) (int, error) {
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
		v, atEOF := r.view()
		prog, err := r.bridge.Decode(p, v, atEOF)
		r.seq.advance(prog.Consumed)
		if err != nil {
			r.err = err
			if prog.Produced > 0 {
				return prog.Produced, nil
			}
			return 0, err
		}
		if prog.Produced > 0 {
			r.needStitch = false
			return prog.Produced, nil
		}
		if prog.Complete {
			r.err = io.EOF
			return 0, io.EOF
		}
		if atEOF {
			r.err = io.ErrUnexpectedEOF
			return 0, r.err
		}
		// the rest of this segment is an incomplete sequence
		r.needStitch = prog.Consumed < len(v) && prog.Examined == len(v)
	}
}

// ReadContext implements iface.Reader. Memory never blocks, so ctx is unused.
func (r *encodedSegmentsReader) ReadContext(_ context.Context, p []byte) (int, error) {
	return r.Read(p)
}

// Close implements iface.Reader.
func (r *encodedSegmentsReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.bridge.Reset()
	r.seq = segments{}
	return nil
}
