package streams

import "errors"

var (
	// ErrUnknownColumn is returned by Select for a name missing from the header.
	ErrUnknownColumn = errors.New("column not found in CSV header")

	errNilReader   = errors.New("csv reader cannot be nil")
	errNilWriter   = errors.New("csv writer cannot be nil")
	errInvalidRune = errors.New("csv comma and comment must be ASCII and not a quote, CR or LF")
)
