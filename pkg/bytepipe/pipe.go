// Package bytepipe implements an in-memory byte pipe with explicit
// acknowledgement and writer backpressure. The reader receives a view of every
// buffered byte and reports how much it consumed and how much it examined; the
// writer commits bytes into spans it borrows from the pipe and is held back in
// Flush while the reader lags behind.
package bytepipe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"csvcore/pkg/api/transport"
)

var (
	_ transport.PipeReader = (*Reader)(nil)
	_ transport.PipeWriter = (*Writer)(nil)
)

// Pipe connects one Writer to one Reader.
type Pipe struct {
	mu  sync.Mutex
	cfg config

	buf      []byte
	readPos  int
	flushed  int
	writeEnd int

	reading       bool
	viewLen       int
	examinedAhead int

	readerDone  bool
	writerDone  bool
	writerErr   error
	cancelRead  bool
	cancelFlush bool

	readSignal  chan struct{}
	flushSignal chan struct{}

	metrics *pipeMetrics
	reader  Reader
	writer  Writer
}

// New creates a Pipe.
func New(opts ...Option) (*Pipe, error) {
	cfg := config{
		pause:      defaultPauseThreshold,
		resume:     defaultResumeThreshold,
		minSegment: defaultMinimumSegment,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.pause > 0 && cfg.resume > cfg.pause {
		return nil, ErrInvalidThreshold
	}

	p := &Pipe{
		cfg:         cfg,
		readSignal:  make(chan struct{}, 1),
		flushSignal: make(chan struct{}, 1),
	}
	if cfg.registerer != nil {
		m, err := newPipeMetrics(cfg.registerer, cfg.name)
		if err != nil {
			return nil, fmt.Errorf("bytepipe: register metrics: %w", err)
		}
		p.metrics = m
	}
	p.reader.p = p
	p.writer.p = p
	return p, nil
}

// Reader returns the consuming half.
func (p *Pipe) Reader() *Reader { return &p.reader }

// Writer returns the producing half.
func (p *Pipe) Writer() *Writer { return &p.writer }

// Buffered returns the number of flushed bytes the reader has not consumed.
func (p *Pipe) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushed - p.readPos
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Reader is the consuming half of a Pipe.
type Reader struct {
	p *Pipe
}

// TryRead implements transport.PipeReader.
func (r *Reader) TryRead() (transport.ReadResult, bool) {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()
	res, ok, err := p.readLocked()
	if err != nil {
		return transport.ReadResult{}, false
	}
	return res, ok
}

// Read implements transport.PipeReader.
func (r *Reader) Read(ctx context.Context) (transport.ReadResult, error) {
	p := r.p
	for {
		p.mu.Lock()
		res, ok, err := p.readLocked()
		p.mu.Unlock()
		if err != nil || ok {
			return res, err
		}

		select {
		case <-p.readSignal:
		case <-ctx.Done():
			return transport.ReadResult{}, ctx.Err()
		}
	}
}

func (p *Pipe) readLocked() (transport.ReadResult, bool, error) {
	if p.readerDone {
		return transport.ReadResult{}, false, ErrReaderCompleted
	}
	if p.cancelRead {
		p.cancelRead = false
		return transport.ReadResult{Canceled: true}, true, nil
	}
	if p.writerErr != nil {
		return transport.ReadResult{}, false, p.writerErr
	}
	unread := p.flushed - p.readPos
	if unread <= p.examinedAhead && !p.writerDone {
		return transport.ReadResult{}, false, nil
	}
	p.reading = true
	p.viewLen = unread
	return transport.ReadResult{
		Buffer:    p.buf[p.readPos:p.flushed:p.flushed],
		Completed: p.writerDone,
	}, true, nil
}

// AdvanceTo implements transport.PipeReader. It panics with ErrInvalidAdvance
// when called without an outstanding read or with positions outside the view.
func (r *Reader) AdvanceTo(consumed, examined int) {
	p := r.p
	p.mu.Lock()
	if !p.reading || consumed < 0 || consumed > examined || examined > p.viewLen {
		p.mu.Unlock()
		panic(fmt.Errorf("%w: consumed=%d examined=%d", ErrInvalidAdvance, consumed, examined))
	}
	p.readPos += consumed
	p.examinedAhead = examined - consumed
	p.reading = false
	buffered := p.flushed - p.readPos
	p.mu.Unlock()

	p.metrics.onConsume(consumed, buffered)
	if consumed > 0 {
		notify(p.flushSignal)
	}
}

// CancelPendingRead makes the pending or next Read return a canceled result.
func (r *Reader) CancelPendingRead() {
	p := r.p
	p.mu.Lock()
	p.cancelRead = true
	p.mu.Unlock()
	notify(p.readSignal)
}

// Complete implements transport.PipeReader.
func (r *Reader) Complete(err error) {
	p := r.p
	p.mu.Lock()
	p.readerDone = true
	p.reading = false
	p.mu.Unlock()
	if err != nil {
		p.cfg.logger.Debug("pipe reader completed with error", slog.String("pipe", p.cfg.name), slog.Any("error", err))
	}
	notify(p.flushSignal)
}

// Writer is the producing half of a Pipe.
type Writer struct {
	p *Pipe
}

// GetSpan implements transport.PipeWriter. The span stays valid until the next
// GetSpan, Write or Flush.
func (w *Writer) GetSpan(sizeHint int) []byte {
	p := w.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if sizeHint < p.cfg.minSegment {
		sizeHint = p.cfg.minSegment
	}
	if len(p.buf)-p.writeEnd >= sizeHint {
		return p.buf[p.writeEnd:]
	}

	unread := p.writeEnd - p.readPos
	fits := len(p.buf)-unread >= sizeHint
	switch {
	case fits && !p.reading:
		copy(p.buf, p.buf[p.readPos:p.writeEnd])
	case fits:
		// the reader still holds a view of the old buffer
		fresh := make([]byte, len(p.buf))
		copy(fresh, p.buf[p.readPos:p.writeEnd])
		p.buf = fresh
	default:
		grown := make([]byte, max(2*len(p.buf), unread+sizeHint))
		copy(grown, p.buf[p.readPos:p.writeEnd])
		p.buf = grown
	}
	p.flushed -= p.readPos
	p.writeEnd -= p.readPos
	p.readPos = 0
	return p.buf[p.writeEnd:]
}

// Advance implements transport.PipeWriter.
func (w *Writer) Advance(n int) {
	p := w.p
	p.mu.Lock()
	if n < 0 || p.writeEnd+n > len(p.buf) {
		p.mu.Unlock()
		panic(fmt.Errorf("%w: advance %d", ErrInvalidAdvance, n))
	}
	p.writeEnd += n
	p.mu.Unlock()
	p.metrics.onWrite(n)
}

// Write copies b into the pipe without flushing.
func (w *Writer) Write(b []byte) (int, error) {
	written := 0
	for written < len(b) {
		if w.completed() {
			return written, ErrWriterCompleted
		}
		span := w.GetSpan(len(b) - written)
		n := copy(span, b[written:])
		w.Advance(n)
		written += n
	}
	return written, nil
}

func (w *Writer) completed() bool {
	w.p.mu.Lock()
	defer w.p.mu.Unlock()
	return w.p.writerDone
}

// Flush implements transport.PipeWriter. It returns without waiting while
// at most the pause threshold of bytes are unread.
func (w *Writer) Flush(ctx context.Context) (transport.FlushResult, error) {
	p := w.p
	p.mu.Lock()
	if p.writerDone {
		p.mu.Unlock()
		return transport.FlushResult{}, ErrWriterCompleted
	}
	p.flushed = p.writeEnd
	buffered := p.flushed - p.readPos
	p.metrics.onFlush(buffered)
	notify(p.readSignal)

	if p.readerDone {
		p.mu.Unlock()
		return transport.FlushResult{Completed: true}, nil
	}
	if p.cfg.pause == 0 || buffered <= p.cfg.pause {
		p.mu.Unlock()
		return transport.FlushResult{}, nil
	}

	p.metrics.onPause()
	p.cfg.logger.DebugContext(ctx, "pipe writer paused", slog.String("pipe", p.cfg.name), slog.Int("buffered", buffered))
	for {
		switch {
		case p.readerDone:
			p.mu.Unlock()
			return transport.FlushResult{Completed: true}, nil
		case p.cancelFlush:
			p.cancelFlush = false
			p.mu.Unlock()
			return transport.FlushResult{Canceled: true}, nil
		case p.flushed-p.readPos <= p.cfg.resume:
			p.mu.Unlock()
			p.cfg.logger.DebugContext(ctx, "pipe writer resumed", slog.String("pipe", p.cfg.name))
			return transport.FlushResult{}, nil
		}
		p.mu.Unlock()

		select {
		case <-p.flushSignal:
		case <-ctx.Done():
			return transport.FlushResult{}, ctx.Err()
		}
		p.mu.Lock()
	}
}

// CancelPendingFlush releases a Flush waiting on backpressure.
func (w *Writer) CancelPendingFlush() {
	p := w.p
	p.mu.Lock()
	p.cancelFlush = true
	p.mu.Unlock()
	notify(p.flushSignal)
}

// Complete implements transport.PipeWriter. Committed bytes become visible to
// the reader; a non-nil err is returned by the reader's next Read.
func (w *Writer) Complete(err error) {
	p := w.p
	p.mu.Lock()
	if p.writerDone {
		p.mu.Unlock()
		return
	}
	p.writerDone = true
	p.writerErr = err
	p.flushed = p.writeEnd
	p.mu.Unlock()
	notify(p.readSignal)
}
