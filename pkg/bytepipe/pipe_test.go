package bytepipe

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPipeRoundTripUnderBackpressure(t *testing.T) {
	p, err := New(WithPauseThreshold(16), WithResumeThreshold(8), WithMinimumSegmentSize(4))
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	payload := make([]byte, 10_000)
	for i := range payload {
		payload[i] = byte(rng.IntN(256))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		w := p.Writer()
		rest := payload
		for len(rest) > 0 {
			n := min(len(rest), 1+rng.IntN(40))
			if _, err := w.Write(rest[:n]); err != nil {
				return err
			}
			if _, err := w.Flush(ctx); err != nil {
				return err
			}
			rest = rest[n:]
		}
		w.Complete(nil)
		return nil
	})

	var got bytes.Buffer
	g.Go(func() error {
		r := p.Reader()
		for {
			res, err := r.Read(ctx)
			if err != nil {
				return err
			}
			// consume at most 5 bytes per read to exercise partial acknowledgement
			n := min(len(res.Buffer), 5)
			got.Write(res.Buffer[:n])
			r.AdvanceTo(n, n)
			if res.Completed && n == len(res.Buffer) {
				r.Complete(nil)
				return nil
			}
		}
	})

	require.NoError(t, g.Wait())
	assert.Equal(t, payload, got.Bytes())
}

func TestPipeExaminedWaitsForNewBytes(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	r, w := p.Reader(), p.Writer()

	_, err = w.Write([]byte{0xE2, 0x82})
	require.NoError(t, err)
	_, err = w.Flush(context.Background())
	require.NoError(t, err)

	res, ok := r.TryRead()
	require.True(t, ok)
	assert.Equal(t, []byte{0xE2, 0x82}, res.Buffer)
	r.AdvanceTo(0, len(res.Buffer))

	_, ok = r.TryRead()
	assert.False(t, ok, "examined bytes alone must not satisfy a read")

	_, err = w.Write([]byte{0xAC})
	require.NoError(t, err)
	_, err = w.Flush(context.Background())
	require.NoError(t, err)

	res, ok = r.TryRead()
	require.True(t, ok)
	assert.Equal(t, []byte("€"), res.Buffer)
}

func TestPipeFlushBlocksUntilReaderDrains(t *testing.T) {
	p, err := New(WithPauseThreshold(8), WithResumeThreshold(2))
	require.NoError(t, err)
	r, w := p.Reader(), p.Writer()

	_, err = w.Write(bytes.Repeat([]byte("x"), 10))
	require.NoError(t, err)

	flushed := make(chan error, 1)
	go func() {
		_, err := w.Flush(context.Background())
		flushed <- err
	}()

	select {
	case <-flushed:
		t.Fatal("flush returned while the reader was behind")
	case <-time.After(50 * time.Millisecond):
	}

	res, err := r.Read(context.Background())
	require.NoError(t, err)
	r.AdvanceTo(len(res.Buffer), len(res.Buffer))

	select {
	case err := <-flushed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("flush did not resume after the reader drained")
	}
}

func TestPipeFlushHonoursContext(t *testing.T) {
	p, err := New(WithPauseThreshold(1), WithResumeThreshold(0))
	require.NoError(t, err)
	w := p.Writer()
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = w.Flush(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeReadHonoursContext(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = p.Reader().Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeCancelPendingRead(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	r := p.Reader()

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.CancelPendingRead()
	}()
	res, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Canceled)
}

func TestPipeCancelPendingFlush(t *testing.T) {
	p, err := New(WithPauseThreshold(1), WithResumeThreshold(0))
	require.NoError(t, err)
	w := p.Writer()
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		w.CancelPendingFlush()
	}()
	res, err := w.Flush(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Canceled)
}

func TestPipeWriterError(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	boom := errors.New("upstream failed")
	p.Writer().Complete(boom)

	_, err = p.Reader().Read(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPipeCompletionStates(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	r, w := p.Reader(), p.Writer()

	r.Complete(nil)
	_, err = w.Write([]byte("late"))
	require.NoError(t, err)
	res, err := w.Flush(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Completed)

	_, err = r.Read(context.Background())
	assert.ErrorIs(t, err, ErrReaderCompleted)

	w.Complete(nil)
	_, err = w.Write([]byte("after"))
	assert.ErrorIs(t, err, ErrWriterCompleted)
	_, err = w.Flush(context.Background())
	assert.ErrorIs(t, err, ErrWriterCompleted)
}

func TestPipeInvalidAdvancePanics(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	assert.PanicsWithError(t, "bytepipe: advance out of range: consumed=0 examined=1", func() {
		p.Reader().AdvanceTo(0, 1)
	})
}

func TestPipeInvalidThresholds(t *testing.T) {
	_, err := New(WithPauseThreshold(4), WithResumeThreshold(8))
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestPipeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(WithMetrics(reg, "test"))
	require.NoError(t, err)
	r, w := p.Reader(), p.Writer()

	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = w.Flush(context.Background())
	require.NoError(t, err)
	res, err := r.Read(context.Background())
	require.NoError(t, err)
	r.AdvanceTo(3, 3)

	assert.Equal(t, 5.0, testutil.ToFloat64(p.metrics.written))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.metrics.consumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.metrics.buffered))
	assert.Len(t, res.Buffer, 5)

	// a second pipe with the same name shares the registered collectors
	_, err = New(WithMetrics(reg, "test"))
	require.NoError(t, err)
}

func TestPipeBufferStaysBoundedWhileReaderHoldsView(t *testing.T) {
	const segment = 64
	p, err := New(WithPauseThreshold(0), WithMinimumSegmentSize(segment))
	require.NoError(t, err)
	r, w := p.Reader(), p.Writer()

	for _, chunk := range []int{30, 300, 1500} {
		data := bytes.Repeat([]byte("y"), chunk)
		maxUnread := 0
		for i := 0; i < 2000; i++ {
			_, err := w.Write(data)
			require.NoError(t, err)
			_, err = w.Flush(context.Background())
			require.NoError(t, err)

			res, ok := r.TryRead()
			require.True(t, ok)

			// the writer keeps producing while the view is outstanding
			_, err = w.Write(data)
			require.NoError(t, err)
			_, err = w.Flush(context.Background())
			require.NoError(t, err)

			maxUnread = max(maxUnread, p.Buffered())
			r.AdvanceTo(len(res.Buffer), len(res.Buffer))
		}
		p.mu.Lock()
		size := len(p.buf)
		p.mu.Unlock()
		assert.LessOrEqual(t, size, 4*(maxUnread+segment), "chunk=%d", chunk)
	}
}

func TestPipeFlushAtPauseThresholdDoesNotWait(t *testing.T) {
	p, err := New(WithPauseThreshold(8), WithResumeThreshold(2))
	require.NoError(t, err)
	w := p.Writer()
	_, err = w.Write([]byte("12345678"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := w.Flush(ctx)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 8, p.Buffered())

	_, err = w.Write([]byte("9"))
	require.NoError(t, err)
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	_, err = w.Flush(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
