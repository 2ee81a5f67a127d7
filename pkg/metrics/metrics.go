// Package metrics exports decoding statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ssargent/logbuf/pkg/printk"
)

// DecoderMetrics implements printk.Observer
type DecoderMetrics struct {
	recordsTotal  *prometheus.CounterVec
	bytesTotal    prometheus.Counter
	outcomesTotal *prometheus.CounterVec
	recordSize    prometheus.Histogram
	storedRecords prometheus.Gauge
}

var _ printk.Observer = (*DecoderMetrics)(nil)

// NewDecoderMetrics creates the decoder metrics and registers them with reg
func NewDecoderMetrics(reg prometheus.Registerer) *DecoderMetrics {
	factory := promauto.With(reg)
	return &DecoderMetrics{
		recordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbuf_records_decoded_total",
				Help: "Total number of decoded records",
			},
			[]string{"level"},
		),

		bytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "logbuf_record_bytes_total",
				Help: "Total on-wire bytes of decoded records, padding included",
			},
		),

		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logbuf_passes_total",
				Help: "Total number of decoding passes by terminal outcome",
			},
			[]string{"outcome"},
		),

		recordSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "logbuf_record_size_bytes",
				Help:    "Declared record_len of decoded records",
				Buckets: prometheus.ExponentialBuckets(16, 2, 9),
			},
		),

		storedRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "logbuf_stored_records",
				Help: "Number of records held in the record store",
			},
		),
	}
}

// ObserveRecord counts a decoded record
func (m *DecoderMetrics) ObserveRecord(rec *printk.Record) {
	m.recordsTotal.WithLabelValues(rec.Level().String()).Inc()
	m.bytesTotal.Add(float64(rec.Footprint()))
	m.recordSize.Observe(float64(rec.RecordLen))
}

// ObserveOutcome counts the outcome that ended a pass
func (m *DecoderMetrics) ObserveOutcome(o printk.Outcome) {
	m.outcomesTotal.WithLabelValues(o.String()).Inc()
}

// SetStoredRecords updates the record store gauge
func (m *DecoderMetrics) SetStoredRecords(n int) {
	m.storedRecords.Set(float64(n))
}
