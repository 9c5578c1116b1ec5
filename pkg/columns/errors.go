package columns

import "errors"

var (
	// ErrNoNames is returned by Build when given no names.
	ErrNoNames = errors.New("columns: no names to build from")
	// ErrAllocation is returned by Build when the allocator cannot supply the name block.
	ErrAllocation = errors.New("columns: cannot allocate name block")
)
