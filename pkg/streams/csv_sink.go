package streams

import (
	"context"
	"strings"

	iface "csvcore/pkg/api/streams"
	"csvcore/pkg/api/transport"
	"csvcore/pkg/quoting"
)

type csvWriter struct {
	dst      transport.Writer
	detector *quoting.Detector
	comma    byte
	eol      string
	row      []byte
}

var _ iface.CsvSink = (*csvWriter)(nil)

// NewCsvSink creates a CSV sink over a transport writer.
func NewCsvSink(dst transport.Writer, opts ...Option) (iface.CsvSink, error) {
	if dst == nil {
		return nil, errNilWriter
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	detector, err := quoting.New(cfg.comma, quoting.WithQuote('"'), quoting.WithStrategy(cfg.strategy))
	if err != nil {
		return nil, err
	}
	w := &csvWriter{dst: dst, detector: detector, comma: cfg.comma, eol: "\n"}
	if cfg.crlf {
		w.eol = "\r\n"
	}
	return w, nil
}

// WriteCsvRecord implements CsvSink. The record is staged whole and handed
// to the writer in one call.
func (w *csvWriter) WriteCsvRecord(ctx context.Context, record []string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	row := w.row[:0]
	for i, field := range record {
		if i > 0 {
			row = append(row, w.comma)
		}
		if !w.needsQuotes(field) {
			row = append(row, field...)
			continue
		}
		row = append(row, '"')
		for {
			j := strings.IndexByte(field, '"')
			if j < 0 {
				break
			}
			row = append(row, field[:j+1]...)
			row = append(row, '"')
			field = field[j+1:]
		}
		row = append(row, field...)
		row = append(row, '"')
	}
	row = append(row, w.eol...)
	w.row = row
	return w.dst.WriteContext(ctx, row)
}

// needsQuotes reports whether field must be quoted. A leading space is quoted
// so readers that trim fields keep it.
func (w *csvWriter) needsQuotes(field string) bool {
	if field == "" {
		return false
	}
	if field[0] == ' ' || field[0] == '\t' {
		return true
	}
	return w.detector.FirstTriggerIndexString(field) >= 0
}

// Flush implements CsvSink.
func (w *csvWriter) Flush() error {
	return w.dst.Flush()
}

// Close implements CsvSink.
func (w *csvWriter) Close() error {
	return w.dst.Close()
}
