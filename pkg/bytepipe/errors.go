package bytepipe

import "errors"

var (
	// ErrReaderCompleted is returned when reading from a pipe whose reader called Complete.
	ErrReaderCompleted = errors.New("bytepipe: reader completed")
	// ErrWriterCompleted is returned when writing to a pipe whose writer called Complete.
	ErrWriterCompleted = errors.New("bytepipe: writer completed")
	// ErrInvalidAdvance is the panic value for AdvanceTo/Advance outside the last view or span.
	ErrInvalidAdvance = errors.New("bytepipe: advance out of range")
	// ErrInvalidThreshold is returned for a resume threshold above the pause threshold.
	ErrInvalidThreshold = errors.New("bytepipe: resume threshold exceeds pause threshold")
)
