package columns

import (
	"fmt"
	"log/slog"

	iface "csvcore/pkg/api/columns"
)

// Algorithm selects the index a Table searches.
type Algorithm int

const (
	// Auto picks Sorted for narrow tables and Trie for wide ones.
	Auto Algorithm = iota
	// Sorted is a binary search over the names in byte order.
	Sorted
	// Trie is a path-compressed radix trie keyed by name bytes.
	Trie
)

// autoTrieMinNames is the table width from which Auto picks Trie.
const autoTrieMinNames = 32

func (a Algorithm) String() string {
	switch a {
	case Auto:
		return "auto"
	case Sorted:
		return "sorted"
	case Trie:
		return "trie"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm is the inverse of Algorithm.String.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range []Algorithm{Auto, Sorted, Trie} {
		if a.String() == s {
			return a, nil
		}
	}
	return Auto, fmt.Errorf("columns: unknown algorithm %q", s)
}

// Option configures Build.
type Option func(*config) error

type config struct {
	algorithm Algorithm
	allocator iface.Allocator
	logger    *slog.Logger
}

func newConfig(opts []Option) (config, error) {
	cfg := config{
		allocator: DefaultAllocator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, err
		}
	}
	return cfg, nil
}

// WithAlgorithm forces the index algorithm.
func WithAlgorithm(a Algorithm) Option {
	return func(c *config) error {
		if a < Auto || a > Trie {
			return fmt.Errorf("columns: invalid algorithm %d", int(a))
		}
		c.algorithm = a
		return nil
	}
}

// WithAllocator sets where the name block is rented from.
func WithAllocator(a iface.Allocator) Option {
	return func(c *config) error {
		if a == nil {
			return fmt.Errorf("%w: nil allocator", ErrAllocation)
		}
		c.allocator = a
		return nil
	}
}

// WithLogger sets the logger that reports duplicate names.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}
