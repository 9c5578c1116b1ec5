package quoting

import (
	"errors"
	"fmt"
)

// Strategy selects how a Detector scans.
type Strategy int

const (
	// Auto chooses per call by input length and CPU support.
	Auto Strategy = iota
	// Direct searches for each trigger in turn.
	Direct
	// Filtered skips 64-byte blocks that a bitset proves trigger-free.
	Filtered
	// Vector compares eight bytes per word against every trigger at once.
	Vector
)

func (s Strategy) String() string {
	switch s {
	case Auto:
		return "auto"
	case Direct:
		return "direct"
	case Filtered:
		return "filtered"
	case Vector:
		return "vector"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

const (
	defaultShortThreshold  = 16
	defaultVectorThreshold = 32
)

// Option configures a Detector.
type Option func(*config) error

type config struct {
	quote, escape       byte
	hasQuote, hasEscape bool
	strategy            Strategy
	short, vector       int
}

// WithQuote adds the quote character to the triggers.
func WithQuote(c byte) Option {
	return func(cfg *config) error {
		if c >= 0x80 {
			return fmt.Errorf("%w: quote %#x", ErrNonASCIITrigger, c)
		}
		cfg.quote, cfg.hasQuote = c, true
		return nil
	}
}

// WithEscape adds an escape character to the triggers.
func WithEscape(c byte) Option {
	return func(cfg *config) error {
		if c >= 0x80 {
			return fmt.Errorf("%w: escape %#x", ErrNonASCIITrigger, c)
		}
		cfg.escape, cfg.hasEscape = c, true
		return nil
	}
}

// WithStrategy forces one scan strategy for every input.
func WithStrategy(s Strategy) Option {
	return func(cfg *config) error {
		if s < Auto || s > Vector {
			return fmt.Errorf("quoting: invalid strategy %d", int(s))
		}
		cfg.strategy = s
		return nil
	}
}

// WithThresholds tunes Auto: inputs shorter than short use Direct, and inputs
// of at least vector bytes use Vector when the CPU supports it.
func WithThresholds(short, vector int) Option {
	return func(cfg *config) error {
		if short < 0 || vector < 0 {
			return errors.New("quoting: negative threshold")
		}
		cfg.short, cfg.vector = short, vector
		return nil
	}
}
