// Package columns resolves column names to ordinals.
//
// A Table copies the names it is built from into one contiguous block rented
// from an Allocator and indexes them either by binary search over the names
// in byte order or by a path-compressed radix trie. Both indexes give the same
// answers; when a name occurs more than once the first occurrence wins.
//
// A built Table is immutable and may be shared by concurrent readers.
// Release must not race with lookups.
package columns

import (
	"fmt"
	"log/slog"
	"unsafe"

	iface "csvcore/pkg/api/columns"
)

var _ iface.Resolver = (*Table)(nil)

type index interface {
	lookup(name []byte) (int, bool)
}

// Table maps names to the ordinals they had in the list passed to Build.
type Table struct {
	block     []byte
	offsets   []int // name i is block[offsets[i]:offsets[i+1]]
	idx       index
	algorithm Algorithm
	allocator iface.Allocator
}

// Build indexes names. It fails only when names is empty or the allocator
// cannot supply a block holding all of them.
func Build(names []string, opts ...Option) (*Table, error) {
	if len(names) == 0 {
		return nil, ErrNoNames
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, name := range names {
		total += len(name)
	}
	block, err := cfg.allocator.Rent(total)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	if len(block) != total {
		cfg.allocator.Return(block)
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrAllocation, len(block), total)
	}

	t := &Table{
		block:     block,
		offsets:   make([]int, len(names)+1),
		algorithm: cfg.algorithm,
		allocator: cfg.allocator,
	}
	off := 0
	for i, name := range names {
		t.offsets[i] = off
		off += copy(block[off:], name)
	}
	t.offsets[len(names)] = off

	if t.algorithm == Auto {
		t.algorithm = Sorted
		if len(names) >= autoTrieMinNames {
			t.algorithm = Trie
		}
	}
	dup := func(ordinal, first int) {
		cfg.logger.Debug("duplicate column name",
			slog.String("name", names[ordinal]),
			slog.Int("ordinal", ordinal),
			slog.Int("resolves_to", first),
		)
	}
	switch t.algorithm {
	case Trie:
		t.idx = newTrieIndex(t, dup)
	default:
		t.idx = newSortedIndex(t, dup)
	}
	return t, nil
}

func (t *Table) name(i int) []byte {
	return t.block[t.offsets[i]:t.offsets[i+1]]
}

// Lookup implements iface.Resolver.
func (t *Table) Lookup(name []byte) (int, bool) {
	if t.idx == nil {
		return -1, false
	}
	return t.idx.lookup(name)
}

// LookupString implements iface.Resolver.
func (t *Table) LookupString(name string) (int, bool) {
	return t.Lookup(unsafe.Slice(unsafe.StringData(name), len(name)))
}

// Len implements iface.Resolver. It returns 0 after Release.
func (t *Table) Len() int {
	if len(t.offsets) == 0 {
		return 0
	}
	return len(t.offsets) - 1
}

// Name implements iface.Resolver. It panics if i is out of range.
func (t *Table) Name(i int) string {
	return string(t.name(i))
}

// Algorithm reports the index in use.
func (t *Table) Algorithm() Algorithm {
	return t.algorithm
}

// Release returns the name block to the allocator. Afterwards every lookup
// reports not found. Calling Release more than once is a no-op.
func (t *Table) Release() {
	if t.idx == nil {
		return
	}
	t.idx = nil
	t.offsets = nil
	t.allocator.Return(t.block)
	t.block = nil
}
