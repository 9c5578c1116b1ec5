package codec

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var _ transform.Transformer = (*Encoder)(nil)

// Encoder converts UTF-8 text into a target encoding for byte sinks.
type Encoder struct {
	enc transform.Transformer
}

// NewEncoder returns an Encoder for enc. A nil enc or UTF-8 copies bytes through.
func NewEncoder(enc encoding.Encoding) *Encoder {
	if enc == nil || enc == unicode.UTF8 {
		return &Encoder{}
	}
	return &Encoder{enc: enc.NewEncoder()}
}

// Encode converts src into dst and follows the transform.Transformer contract:
// transform.ErrShortDst and transform.ErrShortSrc are returned unchanged, any
// other failure matches ErrUnencodable.
func (e *Encoder) Encode(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if e.enc == nil {
		n := copy(dst, src)
		if n < len(src) {
			return n, n, transform.ErrShortDst
		}
		return n, n, nil
	}
	nDst, nSrc, err = e.enc.Transform(dst, src, atEOF)
	if err == nil || errors.Is(err, transform.ErrShortDst) || errors.Is(err, transform.ErrShortSrc) {
		return nDst, nSrc, err
	}
	return nDst, nSrc, fmt.Errorf("%w: %w", ErrUnencodable, err)
}

// Passthrough reports whether the encoder copies bytes unchanged.
func (e *Encoder) Passthrough() bool {
	return e.enc == nil
}

// Reset clears any state retained between calls.
func (e *Encoder) Reset() {
	if e.enc != nil {
		e.enc.Reset()
	}
}

// Transform implements transform.Transformer so an Encoder can back a transform.Writer.
func (e *Encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	return e.Encode(dst, src, atEOF)
}
