package columns

import (
	"bytes"
	"slices"
)

// sortedIndex holds ordinals ordered by name bytes. Each distinct name appears
// once, carrying the ordinal of its first occurrence.
type sortedIndex struct {
	t     *Table
	order []int32
}

func newSortedIndex(t *Table, dup func(ordinal, first int)) *sortedIndex {
	order := make([]int32, t.Len())
	for i := range order {
		order[i] = int32(i)
	}
	slices.SortStableFunc(order, func(a, b int32) int {
		return bytes.Compare(t.name(int(a)), t.name(int(b)))
	})

	kept := order[:0]
	for _, o := range order {
		if n := len(kept); n > 0 && bytes.Equal(t.name(int(kept[n-1])), t.name(int(o))) {
			dup(int(o), int(kept[n-1]))
			continue
		}
		kept = append(kept, o)
	}
	return &sortedIndex{t: t, order: slices.Clip(kept)}
}

func (s *sortedIndex) lookup(name []byte) (int, bool) {
	lo, hi := 0, len(s.order)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch c := bytes.Compare(s.t.name(int(s.order[mid])), name); {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid
		default:
			return int(s.order[mid]), true
		}
	}
	return -1, false
}
