package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"

	apiStreams "csvcore/pkg/api/streams"
	apiTransport "csvcore/pkg/api/transport"
	"csvcore/pkg/bytepipe"
	"csvcore/pkg/codec"
	"csvcore/pkg/columns"
	csvstreams "csvcore/pkg/streams"
	"csvcore/pkg/transport"
)

var (
	logPath    string
	inputPath  string
	outputPath string
	fromName   string
	toName     string
	selected   []string
	comma      string
	algorithm  string
	usePipe    bool
	crlf       bool
	verbose    bool
	logCfg     slog.HandlerOptions = slog.HandlerOptions{
		Level: slog.LevelError,
	}
)

func cmdLineParse() {
	pflag.StringVarP(&logPath, "log", "l", "", "path to log file. Default is stderr")
	pflag.StringVarP(&inputPath, "input", "i", "-", "path to the CSV input, - for stdin")
	pflag.StringVarP(&outputPath, "output", "o", "-", "path to the CSV output, - for stdout")
	pflag.StringVarP(&fromName, "from", "f", "utf-8", "encoding of the input")
	pflag.StringVarP(&toName, "to", "t", "utf-8", "encoding of the output")
	pflag.StringSliceVarP(&selected, "columns", "c", nil, "header names of the columns to keep, in output order")
	pflag.StringVar(&comma, "comma", ",", "field separator of input and output")
	pflag.StringVar(&algorithm, "algorithm", "auto", "header index: auto, sorted or trie")
	pflag.BoolVar(&usePipe, "pipe", false, "feed the input through a byte pipe filled by a separate goroutine")
	pflag.BoolVar(&crlf, "crlf", false, "end output records with CRLF")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) logging")
	pflag.Parse()
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %q: %w", path, err)
	}
	return file, nil
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output %q: %w", path, err)
	}
	return file, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func main() {
	cmdLineParse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if verbose {
		logCfg.Level = slog.LevelDebug
	}
	var output = os.Stderr
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file %q: %v", logPath, err)
		}
		defer f.Close()
		output = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(output, &logCfg)))

	if err := run(ctx); err != nil {
		slog.Error("csvselect failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if len(comma) != 1 {
		return fmt.Errorf("comma must be a single byte, got %q", comma)
	}
	from, err := codec.LookupEncoding(fromName)
	if err != nil {
		return err
	}
	to, err := codec.LookupEncoding(toName)
	if err != nil {
		return err
	}
	alg, err := columns.ParseAlgorithm(algorithm)
	if err != nil {
		return err
	}
	opts := []csvstreams.Option{
		csvstreams.WithComma(comma[0]),
		csvstreams.WithAlgorithm(alg),
	}
	if crlf {
		opts = append(opts, csvstreams.WithCRLF())
	}

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	out, err := openOutput(outputPath)
	if err != nil {
		in.Close()
		return err
	}
	w, err := transport.NewEncodedWriter(out, to)
	if err != nil {
		in.Close()
		out.Close()
		return err
	}
	slog.DebugContext(ctx, "encodings resolved",
		slog.String("from", codec.EncodingName(from)),
		slog.String("to", codec.EncodingName(to)),
	)

	if !usePipe {
		r, err := transport.NewEncodedReader(in, from)
		if err != nil {
			in.Close()
			w.Close()
			return err
		}
		return copySelected(ctx, r, w, opts)
	}
	return pipeSelected(ctx, in, from, w, opts)
}

// pipeSelected moves the input through a byte pipe: one goroutine fills it
// from the file while the other decodes and selects.
func pipeSelected(ctx context.Context, in io.ReadCloser, from encoding.Encoding, w apiTransport.Writer, opts []csvstreams.Option) error {
	reg := prometheus.NewRegistry()
	p, err := bytepipe.New(bytepipe.WithMetrics(reg, "input"))
	if err != nil {
		in.Close()
		w.Close()
		return err
	}
	r, err := transport.NewPipeReader(p.Reader(), from)
	if err != nil {
		in.Close()
		w.Close()
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer in.Close()
		err := produce(ctx, in, p.Writer())
		p.Writer().Complete(err)
		return err
	})
	g.Go(func() error {
		return copySelected(ctx, r, w, opts)
	})
	err = g.Wait()
	logMetrics(ctx, reg)
	return err
}

// produce copies src into the pipe, waiting whenever the reader falls behind.
func produce(ctx context.Context, src io.Reader, pw *bytepipe.Writer) error {
	for {
		span := pw.GetSpan(32 << 10)
		n, err := src.Read(span)
		pw.Advance(n)
		if n > 0 {
			res, ferr := pw.Flush(ctx)
			if ferr != nil {
				return ferr
			}
			if res.Completed {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func copySelected(ctx context.Context, r apiTransport.Reader, w apiTransport.Writer, opts []csvstreams.Option) (err error) {
	defer func() {
		if cerr := w.CloseContext(ctx); err == nil {
			err = cerr
		}
	}()

	stream, err := csvstreams.NewCsvStream(ctx, r, opts...)
	if err != nil {
		r.Close()
		return err
	}
	defer stream.Close()

	ords := make([]int, len(stream.GetHeader()))
	for i := range ords {
		ords[i] = i
	}
	if len(selected) > 0 {
		if ords, err = csvstreams.Select(stream, selected...); err != nil {
			return err
		}
	}

	sink, err := csvstreams.NewCsvSink(w, opts...)
	if err != nil {
		return err
	}
	if err := sink.WriteCsvRecord(ctx, project(stream.GetHeader(), ords, nil)); err != nil {
		return err
	}
	return copyRecords(ctx, stream, sink, ords)
}

func copyRecords(ctx context.Context, stream apiStreams.CsvStream, sink apiStreams.CsvSink, ords []int) error {
	var row []string
	count := 0
	for {
		rec, err := stream.ReadCsvRecord(ctx)
		if errors.Is(err, io.EOF) {
			slog.DebugContext(ctx, "records copied", slog.Int("count", count))
			return nil
		}
		if err != nil {
			return err
		}
		row = project(rec, ords, row)
		if err := sink.WriteCsvRecord(ctx, row); err != nil {
			return err
		}
		count++
	}
}

// project picks the fields at ords, leaving short records' missing fields empty.
func project(rec []string, ords []int, dst []string) []string {
	dst = dst[:0]
	for _, o := range ords {
		if o < len(rec) {
			dst = append(dst, rec[o])
		} else {
			dst = append(dst, "")
		}
	}
	return dst
}

func logMetrics(ctx context.Context, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		slog.WarnContext(ctx, "failed to gather pipe metrics", slog.Any("error", err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			slog.DebugContext(ctx, "pipe metric", slog.String("name", mf.GetName()), slog.Float64("value", v))
		}
	}
}
