package quoting

import (
	"encoding/binary"
	"math/bits"
)

const (
	laneBytes   = 8
	vectorBlock = 4 * laneBytes

	lows  = 0x0101010101010101
	low7  = 0x7F7F7F7F7F7F7F7F
	highs = 0x8080808080808080
)

func broadcast(c byte) uint64 {
	return lows * uint64(c)
}

// matchMask sets the high bit of every byte of w that equals a trigger. Unlike
// the classic haszero trick it has no false positives, so the lowest set bit
// is the first match.
func matchMask(t *triggers, w uint64) uint64 {
	var m uint64
	for _, b := range t.bcast[:t.n] {
		x := w ^ b
		m |= ^((x&low7 + low7) | x | low7)
	}
	return m & highs
}

// vectorScan compares 32-byte blocks as four little-endian words and leaves
// the tail to the direct scan.
func vectorScan(t *triggers, text []byte) int {
	off := 0
	for ; off+vectorBlock <= len(text); off += vectorBlock {
		block := text[off : off+vectorBlock]
		m0 := matchMask(t, binary.LittleEndian.Uint64(block[0:]))
		m1 := matchMask(t, binary.LittleEndian.Uint64(block[8:]))
		m2 := matchMask(t, binary.LittleEndian.Uint64(block[16:]))
		m3 := matchMask(t, binary.LittleEndian.Uint64(block[24:]))
		if m0|m1|m2|m3 == 0 {
			continue
		}
		for lane, m := range [4]uint64{m0, m1, m2, m3} {
			if m != 0 {
				return off + lane*laneBytes + bits.TrailingZeros64(m)/8
			}
		}
	}
	if j := directScan(t, text[off:]); j >= 0 {
		return off + j
	}
	return -1
}
