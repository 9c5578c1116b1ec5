package transport

import (
	"log/slog"
)

const defaultBufferSize = 4 << 10

// Option configures an adapter.
type Option func(*config) error

type config struct {
	bufferSize int
	leaveOpen  bool
	substitute bool
	logger     *slog.Logger
}

func newConfig(opts []Option) (config, error) {
	cfg := config{
		bufferSize: defaultBufferSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, err
		}
	}
	return cfg, nil
}

// WithBufferSize sets the size of the staging buffer used by byte-sourced
// readers and by writers.
func WithBufferSize(n int) Option {
	return func(c *config) error {
		if n < 64 {
			return errInvalidBufferSize
		}
		c.bufferSize = n
		return nil
	}
}

// WithLeaveOpen keeps the wrapped transport open when the adapter is closed.
func WithLeaveOpen() Option {
	return func(c *config) error {
		c.leaveOpen = true
		return nil
	}
}

// WithSubstitution makes byte-sourced readers replace malformed input with
// U+FFFD instead of failing.
func WithSubstitution() Option {
	return func(c *config) error {
		c.substitute = true
		return nil
	}
}

// WithLogger sets the logger used for diagnostics on close.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}
