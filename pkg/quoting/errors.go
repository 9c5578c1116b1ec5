package quoting

import "errors"

var (
	// ErrNonASCIITrigger is returned when a trigger character is outside ASCII.
	ErrNonASCIITrigger = errors.New("quoting: trigger characters must be ASCII")
	// ErrInvalidSeparator is returned for a CR or LF separator.
	ErrInvalidSeparator = errors.New("quoting: separator cannot be CR or LF")
)
