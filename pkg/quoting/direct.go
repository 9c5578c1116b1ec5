package quoting

import "bytes"

// directScan searches for each trigger, narrowing the window to the best
// match found so far.
func directScan(t *triggers, text []byte) int {
	best := -1
	window := text
	for _, c := range t.set[:t.n] {
		if i := bytes.IndexByte(window, c); i >= 0 {
			best = i
			if i == 0 {
				break
			}
			window = window[:i]
		}
	}
	return best
}
