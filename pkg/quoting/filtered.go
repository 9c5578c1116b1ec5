package quoting

// filterBlock is the block size of the pre-filter.
const filterBlock = 64

// filterBit maps a byte into a 64-bit set. Distinct bytes may share a bit,
// so a hit only means the byte may be a trigger.
func filterBit(c byte) uint64 {
	return 1 << ((c ^ c>>6) & 63)
}

// filteredScan tests each byte against the trigger bitset and runs the direct
// scan only from the first possible hit of a block.
func filteredScan(t *triggers, text []byte) int {
	for off := 0; off < len(text); off += filterBlock {
		block := text[off:min(off+filterBlock, len(text))]
		for i, c := range block {
			if t.filter&filterBit(c) == 0 {
				continue
			}
			if j := directScan(t, block[i:]); j >= 0 {
				return off + i + j
			}
			break
		}
	}
	return -1
}
