package bytepipe

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultPauseThreshold  = 64 << 10
	defaultResumeThreshold = 32 << 10
	defaultMinimumSegment  = 4 << 10
)

// Option configures a Pipe.
type Option func(*config) error

type config struct {
	pause      int
	resume     int
	minSegment int
	registerer prometheus.Registerer
	name       string
	logger     *slog.Logger
}

// WithPauseThreshold sets how many unread bytes Flush tolerates before it waits.
// Zero disables backpressure.
func WithPauseThreshold(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.New("bytepipe: negative pause threshold")
		}
		c.pause = n
		return nil
	}
}

// WithResumeThreshold sets how far the reader must drain before a waiting Flush returns.
func WithResumeThreshold(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.New("bytepipe: negative resume threshold")
		}
		c.resume = n
		return nil
	}
}

// WithMinimumSegmentSize sets the smallest span GetSpan hands out.
func WithMinimumSegmentSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.New("bytepipe: minimum segment size must be positive")
		}
		c.minSegment = n
		return nil
	}
}

// WithMetrics exports pipe counters to reg under the label pipe=name.
// A nil registerer leaves metrics disabled.
func WithMetrics(reg prometheus.Registerer, name string) Option {
	return func(c *config) error {
		c.registerer = reg
		c.name = name
		return nil
	}
}

// WithLogger sets the logger for backpressure events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}
