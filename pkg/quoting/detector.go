// Package quoting decides which CSV fields need quoting on write.
//
// A Detector looks for up to five single-byte triggers. Three scans are
// available and always agree: a direct search per trigger, a bitset pre-filter
// over 64-byte blocks, and a word-parallel scan over 32-byte blocks. Triggers
// are ASCII, so none of them can match inside a multi-byte UTF-8 sequence and
// the returned offset is always at a character boundary.
package quoting

import (
	"fmt"
	"unsafe"

	iface "csvcore/pkg/api/quoting"
)

var _ iface.Detector = (*Detector)(nil)

const maxTriggers = 5

// triggers is the fixed trigger set of a Detector with its precomputed
// filter bitset and broadcast words.
type triggers struct {
	set    [maxTriggers]byte
	n      int
	filter uint64
	bcast  [maxTriggers]uint64
}

func (t *triggers) add(c byte) {
	for _, have := range t.set[:t.n] {
		if have == c {
			return
		}
	}
	t.set[t.n] = c
	t.bcast[t.n] = broadcast(c)
	t.filter |= filterBit(c)
	t.n++
}

// Detector is safe for concurrent use.
type Detector struct {
	trig          triggers
	strategy      Strategy
	short, vector int
}

// New returns a Detector for the given separator plus CR and LF.
func New(separator byte, opts ...Option) (*Detector, error) {
	if separator >= 0x80 {
		return nil, fmt.Errorf("%w: separator %#x", ErrNonASCIITrigger, separator)
	}
	if separator == '\r' || separator == '\n' {
		return nil, ErrInvalidSeparator
	}
	cfg := config{short: defaultShortThreshold, vector: defaultVectorThreshold}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	d := &Detector{strategy: cfg.strategy, short: cfg.short, vector: cfg.vector}
	d.trig.add('\r')
	d.trig.add('\n')
	d.trig.add(separator)
	if cfg.hasQuote {
		d.trig.add(cfg.quote)
	}
	if cfg.hasEscape {
		d.trig.add(cfg.escape)
	}
	if d.strategy == Vector && !vectorAvailable {
		d.strategy = Filtered
	}
	return d, nil
}

// Triggers returns the trigger bytes in the order they are searched.
func (d *Detector) Triggers() []byte {
	return append([]byte(nil), d.trig.set[:d.trig.n]...)
}

// Strategy returns the configured strategy. Vector is downgraded to Filtered
// when the CPU lacks support.
func (d *Detector) Strategy() Strategy {
	return d.strategy
}

// FirstTriggerIndex implements iface.Detector.
func (d *Detector) FirstTriggerIndex(text []byte) int {
	switch d.pick(len(text)) {
	case Direct:
		return directScan(&d.trig, text)
	case Vector:
		return vectorScan(&d.trig, text)
	default:
		return filteredScan(&d.trig, text)
	}
}

func (d *Detector) pick(n int) Strategy {
	if d.strategy != Auto {
		return d.strategy
	}
	switch {
	case n < d.short:
		return Direct
	case vectorAvailable && n >= d.vector:
		return Vector
	default:
		return Filtered
	}
}

// FirstTriggerIndexString implements iface.Detector.
func (d *Detector) FirstTriggerIndexString(text string) int {
	return d.FirstTriggerIndex(unsafe.Slice(unsafe.StringData(text), len(text)))
}

// NeedsQuoting implements iface.Detector.
func (d *Detector) NeedsQuoting(text []byte) bool {
	return d.FirstTriggerIndex(text) >= 0
}
