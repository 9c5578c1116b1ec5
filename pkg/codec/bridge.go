// Package codec converts between encoded bytes and the UTF-8 character stream
// the CSV grammar consumes. The Bridge decodes incrementally and keeps the state
// of a multi-byte sequence split across input fragments; the Encoder is the
// reverse step used by byte-oriented sinks.
package codec

import (
	"bytes"
	"errors"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// carrySize bounds the output of a single decode step that does not fit the
// caller's buffer. Every x/text decoder emits at most a few bytes per character.
const carrySize = 32

var (
	replacementChar = []byte("�")
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
)

// Progress describes one Decode call.
//
// Consumed bytes may be discarded by the caller. Bytes between Consumed and
// Examined were inspected but belong to an incomplete sequence and must be
// supplied again, followed by more input.
type Progress struct {
	Produced int
	Consumed int
	Examined int
	// Complete is set once end of input was signalled and no partial sequence
	// or staged output remains. Every later call returns zero progress.
	Complete bool
	// NeedMore is set when no character could be produced from the input given.
	NeedMore bool
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge) error

// WithSubstitution replaces malformed sequences with U+FFFD instead of failing.
func WithSubstitution() BridgeOption {
	return func(b *Bridge) error {
		b.substitute = true
		return nil
	}
}

// Bridge is a single-use incremental decoder. It is not safe for concurrent use.
type Bridge struct {
	dec        transform.Transformer
	substitute bool
	// checkRepl is set for decoders that report malformed input by emitting U+FFFD.
	checkRepl bool

	carry    [carrySize]byte
	carryLo  int
	carryHi  int
	complete bool
	offset   int64
	// failed is returned once the staged characters decoded before it are drained.
	failed error
}

// NewBridge returns a Bridge decoding enc. A nil enc selects strict UTF-8.
func NewBridge(enc encoding.Encoding, opts ...BridgeOption) (*Bridge, error) {
	b := &Bridge{}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	switch {
	case enc == nil || enc == unicode.UTF8:
		if b.substitute {
			b.dec = unicode.UTF8.NewDecoder()
		} else {
			b.dec = encoding.UTF8Validator
		}
	case enc == unicode.UTF8BOM:
		if b.substitute {
			b.dec = enc.NewDecoder()
		} else {
			b.dec = &bomStripper{next: encoding.UTF8Validator}
		}
	default:
		b.dec = enc.NewDecoder()
		b.checkRepl = !b.substitute
	}
	return b, nil
}

// Complete reports whether the final byte has been converted.
func (b *Bridge) Complete() bool {
	return b.complete
}

// Reset drops any partial state and marks the bridge complete. It is called
// when the owning adapter is closed.
func (b *Bridge) Reset() {
	b.dec.Reset()
	b.carryLo, b.carryHi = 0, 0
	b.complete = true
}

// Decode converts src into dst. atEOF tells the bridge that src holds the last
// bytes the transport will ever deliver.
//
// Characters decoded ahead of malformed input are delivered first, so a failing
// call may report Produced > 0 together with the error. Once failed, Consumed no
// longer advances and every later call returns the same error.
func (b *Bridge) Decode(dst, src []byte, atEOF bool) (Progress, error) {
	var p Progress
	if b.complete {
		p.Complete = true
		return p, nil
	}

	if len(dst) == 0 {
		return p, nil
	}
	if b.failed != nil {
		p.Produced = b.drain(dst)
		if b.carryLo != b.carryHi {
			return p, nil
		}
		return p, b.failed
	}

	p.Produced = b.drain(dst)
	shortSrc := false

	for p.Produced < len(dst) && b.carryLo == b.carryHi {
		out := dst[p.Produced:]
		direct := len(out) >= carrySize
		if !direct && p.Produced > 0 {
			// keep chunks aligned to characters when the caller already has output
			break
		}
		target := out
		if !direct {
			target = b.carry[:]
		}

		nDst, nSrc, err := b.dec.Transform(target, src[p.Consumed:], atEOF)
		if b.checkRepl && nDst > 0 {
			if i := bytes.Index(target[:nDst], replacementChar); i >= 0 {
				// the decoder does not say which input byte mapped to U+FFFD
				p = b.stage(p, dst, i, direct)
				return b.fail(p, src, &MalformedInputError{Offset: b.offset, Err: errors.New("unmappable byte sequence")})
			}
		}
		p.Consumed += nSrc
		b.offset += int64(nSrc)
		p = b.stage(p, dst, nDst, direct)

		switch {
		case err == nil:
			if atEOF && b.carryLo == b.carryHi {
				b.complete = true
			}
			return b.finish(p, src, false), nil
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				return p, ErrNoProgress
			}
		case errors.Is(err, transform.ErrShortSrc):
			if atEOF {
				return b.fail(p, src, &MalformedInputError{Offset: b.offset, Err: errors.New("truncated sequence at end of input")})
			}
			shortSrc = true
			return b.finish(p, src, shortSrc), nil
		default:
			return b.fail(p, src, &MalformedInputError{Offset: b.offset, Err: err})
		}
	}
	return b.finish(p, src, shortSrc), nil
}

// stage accounts for n bytes the decoder wrote, either straight into dst or
// into the carry.
func (b *Bridge) stage(p Progress, dst []byte, n int, direct bool) Progress {
	if direct {
		p.Produced += n
		return p
	}
	b.carryLo, b.carryHi = 0, n
	p.Produced += b.drain(dst[p.Produced:])
	return p
}

// fail records err and returns it unless staged characters are still pending.
func (b *Bridge) fail(p Progress, src []byte, err error) (Progress, error) {
	b.failed = err
	if b.carryLo != b.carryHi {
		return b.finish(p, src, false), nil
	}
	return p, err
}

func (b *Bridge) finish(p Progress, src []byte, shortSrc bool) Progress {
	p.Examined = p.Consumed
	p.Complete = b.complete
	if shortSrc {
		p.Examined = len(src)
	}
	if p.Produced == 0 && !b.complete {
		p.NeedMore = true
		p.Examined = len(src)
	}
	return p
}

// drain copies staged output into dst.
func (b *Bridge) drain(dst []byte) int {
	if b.carryLo == b.carryHi {
		return 0
	}
	n := copy(dst, b.carry[b.carryLo:b.carryHi])
	b.carryLo += n
	if b.carryLo == b.carryHi {
		b.carryLo, b.carryHi = 0, 0
	}
	return n
}

// bomStripper drops a leading UTF-8 byte order mark before handing the input
// to next.
type bomStripper struct {
	next    transform.Transformer
	checked bool
}

// Transform implements transform.Transformer.
func (s *bomStripper) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if !s.checked {
		n := min(len(src), len(utf8BOM))
		switch {
		case !bytes.Equal(src[:n], utf8BOM[:n]):
			s.checked = true
		case n < len(utf8BOM) && !atEOF:
			return 0, 0, transform.ErrShortSrc
		case n < len(utf8BOM):
			s.checked = true
		default:
			s.checked = true
			nDst, nSrc, err = s.next.Transform(dst, src[len(utf8BOM):], atEOF)
			return nDst, nSrc + len(utf8BOM), err
		}
	}
	return s.next.Transform(dst, src, atEOF)
}

// Reset implements transform.Transformer.
func (s *bomStripper) Reset() {
	s.checked = false
	s.next.Reset()
}
