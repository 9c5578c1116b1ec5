// Package streams reads and writes CSV records over the transport adapters.
//
// Record parsing is delegated to encoding/csv. The header row is indexed by a
// columns.Table, and sinks quote fields by asking a quoting.Detector.
package streams

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	iface "csvcore/pkg/api/streams"
	"csvcore/pkg/api/transport"
	"csvcore/pkg/columns"
)

// ctxReader binds a context to the reads encoding/csv issues, so a read
// waiting on a pipe can be canceled.
type ctxReader struct {
	src transport.Reader
	ctx context.Context
}

func (r *ctxReader) Read(p []byte) (int, error) {
	return r.src.ReadContext(r.ctx, p)
}

type csvReader struct {
	src    *ctxReader
	reader *csv.Reader
	header []string
	table  *columns.Table
}

var _ iface.CsvStream = (*csvReader)(nil)

// NewCsvStream creates a new CSV stream over a transport reader.
// It reads the header row immediately and indexes its names.
func NewCsvStream(ctx context.Context, src transport.Reader, opts ...Option) (iface.CsvStream, error) {
	if src == nil {
		return nil, errNilReader
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	in := &ctxReader{src: src, ctx: ctx}
	csvR := csv.NewReader(in)
	csvR.Comma = rune(cfg.comma)
	csvR.Comment = rune(cfg.comment)
	csvR.FieldsPerRecord = -1

	// Read header row
	header, err := csvR.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	table, err := columns.Build(header, columns.WithAlgorithm(cfg.algorithm), columns.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("index header: %w", err)
	}
	cfg.logger.DebugContext(ctx, "csv header indexed",
		slog.Int("columns", table.Len()),
		slog.String("algorithm", table.Algorithm().String()),
	)

	return &csvReader{
		src:    in,
		reader: csvR,
		header: header,
		table:  table,
	}, nil
}

// ReadCsvRecord implements CsvStream.
func (c *csvReader) ReadCsvRecord(ctx context.Context) ([]string, error) {
	if c == nil || c.reader == nil {
		return nil, io.EOF
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		c.src.ctx = ctx
		return c.reader.Read()
	}
}

// GetHeader implements CsvStream.
func (c *csvReader) GetHeader() []string {
	if c == nil {
		return nil
	}
	return c.header
}

// Column implements CsvStream.
func (c *csvReader) Column(name string) (int, bool) {
	if c == nil || c.table == nil {
		return -1, false
	}
	return c.table.LookupString(name)
}

// Select resolves names to ordinals, failing on the first unknown name.
func Select(stream iface.CsvStream, names ...string) ([]int, error) {
	ords := make([]int, len(names))
	for i, name := range names {
		ord, ok := stream.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		ords[i] = ord
	}
	return ords, nil
}

// Close implements CsvStream.
func (c *csvReader) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	c.reader = nil
	c.table.Release()
	return c.src.src.Close()
}
