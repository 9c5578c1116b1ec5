package bytepipe

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// pipeMetrics holds the Prometheus collectors of one pipe.
type pipeMetrics struct {
	written  prometheus.Counter
	consumed prometheus.Counter
	pauses   prometheus.Counter
	buffered prometheus.Gauge
}

func newPipeMetrics(reg prometheus.Registerer, name string) (*pipeMetrics, error) {
	labels := prometheus.Labels{"pipe": name}
	m := &pipeMetrics{
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "csvcore",
			Subsystem:   "bytepipe",
			Name:        "written_bytes_total",
			ConstLabels: labels,
			Help:        "Total number of bytes committed by the pipe writer",
		}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "csvcore",
			Subsystem:   "bytepipe",
			Name:        "consumed_bytes_total",
			ConstLabels: labels,
			Help:        "Total number of bytes released by the pipe reader",
		}),
		pauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "csvcore",
			Subsystem:   "bytepipe",
			Name:        "writer_pauses_total",
			ConstLabels: labels,
			Help:        "Number of flushes that waited for the reader to catch up",
		}),
		buffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "csvcore",
			Subsystem:   "bytepipe",
			Name:        "buffered_bytes",
			ConstLabels: labels,
			Help:        "Flushed bytes not yet consumed by the reader",
		}),
	}

	var err error
	if m.written, err = registerCollector(reg, m.written); err != nil {
		return nil, err
	}
	if m.consumed, err = registerCollector(reg, m.consumed); err != nil {
		return nil, err
	}
	if m.pauses, err = registerCollector(reg, m.pauses); err != nil {
		return nil, err
	}
	if m.buffered, err = registerCollector(reg, m.buffered); err != nil {
		return nil, err
	}
	return m, nil
}

// registerCollector registers c, reusing an identical collector that is already registered.
func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *pipeMetrics) onWrite(n int) {
	if m == nil {
		return
	}
	m.written.Add(float64(n))
}

func (m *pipeMetrics) onConsume(n, buffered int) {
	if m == nil {
		return
	}
	m.consumed.Add(float64(n))
	m.buffered.Set(float64(buffered))
}

func (m *pipeMetrics) onFlush(buffered int) {
	if m == nil {
		return
	}
	m.buffered.Set(float64(buffered))
}

func (m *pipeMetrics) onPause() {
	if m == nil {
		return
	}
	m.pauses.Inc()
}
