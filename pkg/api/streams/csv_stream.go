package streams

import "context"

// CsvStream represents a stream of CSV records.
type CsvStream interface {
	// ReadCsvRecord reads the next CSV record from the stream.
	// Returns the next record as a slice of strings and any error encountered.
	ReadCsvRecord(ctx context.Context) ([]string, error)

	// GetHeader returns the header row of the CSV file.
	// This is typically the first row with column names.
	GetHeader() []string

	// Column returns the ordinal of the header column with exactly this name.
	Column(name string) (int, bool)

	// Close releases the header index and the underlying reader.
	Close() error
}

// CsvSink writes CSV records, quoting fields only where needed.
type CsvSink interface {
	// WriteCsvRecord writes one record followed by a line terminator.
	WriteCsvRecord(ctx context.Context, record []string) error

	// Flush pushes buffered records to the underlying writer.
	Flush() error

	// Close flushes and releases the underlying writer.
	Close() error
}
