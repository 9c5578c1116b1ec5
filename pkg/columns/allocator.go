package columns

import (
	"fmt"
	"math/bits"
	"sync"

	iface "csvcore/pkg/api/columns"
)

var _ iface.Allocator = (*poolAllocator)(nil)

const (
	minClassShift = 6  // 64 B
	maxClassShift = 20 // 1 MiB
	numClasses    = maxClassShift - minClassShift + 1
)

// poolAllocator recycles blocks in power-of-two size classes. Requests above
// the largest class are allocated directly and dropped on Return.
type poolAllocator struct {
	pools [numClasses]sync.Pool
}

var defaultAllocator = &poolAllocator{}

// DefaultAllocator returns the process-wide pooled allocator.
func DefaultAllocator() iface.Allocator {
	return defaultAllocator
}

// sizeClass returns the index of the smallest class holding size bytes.
func sizeClass(size int) int {
	if size <= 1<<minClassShift {
		return 0
	}
	return bits.Len(uint(size-1)) - minClassShift
}

// Rent implements iface.Allocator.
func (a *poolAllocator) Rent(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("columns: negative block size %d", size)
	}
	c := sizeClass(size)
	if c >= numClasses {
		return make([]byte, size), nil
	}
	if b, ok := a.pools[c].Get().(*[]byte); ok {
		return (*b)[:size], nil
	}
	return make([]byte, size, 1<<(c+minClassShift)), nil
}

// Return implements iface.Allocator. Blocks whose capacity is not exactly a
// class size did not come from Rent and are ignored.
func (a *poolAllocator) Return(block []byte) {
	n := cap(block)
	if n == 0 || n&(n-1) != 0 {
		return
	}
	c := sizeClass(n)
	if c >= numClasses || 1<<(c+minClassShift) != n {
		return
	}
	block = block[:n]
	a.pools[c].Put(&block)
}
