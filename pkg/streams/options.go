package streams

import (
	"log/slog"

	"csvcore/pkg/columns"
	"csvcore/pkg/quoting"
)

// Option configures a CSV stream or sink.
type Option func(*config) error

type config struct {
	comma     byte
	comment   byte
	algorithm columns.Algorithm
	strategy  quoting.Strategy
	crlf      bool
	logger    *slog.Logger
}

func newConfig(opts []Option) (config, error) {
	cfg := config{
		comma:  ',',
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, err
		}
	}
	return cfg, nil
}

func validDelimiter(c byte) bool {
	return c != 0 && c < 0x80 && c != '"' && c != '\r' && c != '\n'
}

// WithComma sets the field separator. Default is ','.
func WithComma(c byte) Option {
	return func(cfg *config) error {
		if !validDelimiter(c) {
			return errInvalidRune
		}
		cfg.comma = c
		return nil
	}
}

// WithComment makes the stream skip lines starting with c.
func WithComment(c byte) Option {
	return func(cfg *config) error {
		if !validDelimiter(c) {
			return errInvalidRune
		}
		cfg.comment = c
		return nil
	}
}

// WithAlgorithm sets the index used for header lookups.
func WithAlgorithm(a columns.Algorithm) Option {
	return func(cfg *config) error {
		cfg.algorithm = a
		return nil
	}
}

// WithQuoteStrategy forces the scan a sink uses to decide on quoting.
func WithQuoteStrategy(s quoting.Strategy) Option {
	return func(cfg *config) error {
		cfg.strategy = s
		return nil
	}
}

// WithCRLF makes a sink end records with "\r\n" instead of "\n".
func WithCRLF() Option {
	return func(cfg *config) error {
		cfg.crlf = true
		return nil
	}
}

// WithLogger sets the logger for header diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) error {
		if logger != nil {
			cfg.logger = logger
		}
		return nil
	}
}
