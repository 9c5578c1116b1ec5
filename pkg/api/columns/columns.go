package columns

// Resolver maps a column name to the zero-based ordinal it was given when
// the table was built. Lookups compare bytes exactly and never allocate.
type Resolver interface {
	// Lookup returns the ordinal of name, or false when no column has that name.
	Lookup(name []byte) (int, bool)
	// LookupString is Lookup for a string candidate.
	LookupString(name string) (int, bool)
	// Len returns the number of names the table was built from.
	Len() int
	// Name returns the i-th name.
	Name(i int) string
}

// Allocator hands out the contiguous block a table copies its names into.
type Allocator interface {
	// Rent returns a block of exactly size bytes.
	Rent(size int) ([]byte, error)
	// Return gives back a block obtained from Rent.
	Return(block []byte)
}
