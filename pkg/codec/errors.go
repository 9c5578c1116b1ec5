package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is matched by every *MalformedInputError.
	ErrMalformedInput = errors.New("codec: malformed input")
	// ErrUnencodable is returned when a character has no representation in the target encoding.
	ErrUnencodable = errors.New("codec: character not representable in target encoding")
	// ErrNoProgress is returned when a decoder can neither consume nor produce.
	ErrNoProgress = errors.New("codec: decoder made no progress")
	// ErrUnknownEncoding is returned by LookupEncoding for names it cannot resolve.
	ErrUnknownEncoding = errors.New("codec: unknown encoding")
)

// MalformedInputError reports a byte sequence that cannot be mapped under the
// configured encoding. Offset counts bytes from the start of the session and
// points at the first byte of the decode step that failed. A step covers as
// much input as fits the destination, so the offending sequence starts at or
// after Offset.
type MalformedInputError struct {
	Offset int64
	Err    error
}

// Error formats the error with its offset.
func (e *MalformedInputError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("codec: malformed input at byte %d", e.Offset)
	}
	return fmt.Sprintf("codec: malformed input at byte %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying decoder error.
func (e *MalformedInputError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports ErrMalformedInput as a match so callers need not know the concrete type.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}
