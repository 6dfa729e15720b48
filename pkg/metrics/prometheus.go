package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	barsLoaded  *prometheus.CounterVec
	rowsSkipped *prometheus.CounterVec
	malformed   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	watermark   *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsLoaded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "midas_bars_loaded_total",
				Help: "Total bars upserted into the store",
			},
			[]string{"symbol", "interval"},
		),
		rowsSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "midas_rows_skipped_total",
				Help: "Source rows skipped at or below the watermark",
			},
			[]string{"symbol", "interval"},
		),
		malformed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "midas_malformed_records_total",
				Help: "Unparseable source rows skipped",
			},
			[]string{"symbol"},
		),
		dropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "midas_dropped_out_of_order_total",
				Help: "Records dropped beyond the reorder window",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "midas_errors_total",
				Help: "Total pipeline errors by kind",
			},
			[]string{"type"},
		),
		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "midas_pipeline_duration_seconds",
				Help:    "Duration of one (symbol, interval) pipeline",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol", "interval"},
		),
		watermark: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "midas_watermark_seconds",
				Help: "Last confirmed bucket start as unix seconds",
			},
			[]string{"symbol", "interval"},
		),
	}
}

// RecordBarsLoaded counts bars upserted for a table.
func (r *Recorder) RecordBarsLoaded(symbol, interval string, n int64) {
	r.barsLoaded.WithLabelValues(symbol, interval).Add(float64(n))
}

// RecordRowsSkipped counts source rows below the watermark.
func (r *Recorder) RecordRowsSkipped(symbol, interval string, n int64) {
	r.rowsSkipped.WithLabelValues(symbol, interval).Add(float64(n))
}

// RecordMalformed counts skipped unparseable rows.
func (r *Recorder) RecordMalformed(symbol string, n int64) {
	r.malformed.WithLabelValues(symbol).Add(float64(n))
}

// RecordDropped counts records dropped as out of order.
func (r *Recorder) RecordDropped(symbol string, n int64) {
	r.dropped.WithLabelValues(symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordPipelineDuration records one pipeline's wall time in seconds.
func (r *Recorder) RecordPipelineDuration(symbol, interval string, seconds float64) {
	r.duration.WithLabelValues(symbol, interval).Observe(seconds)
}

// RecordWatermark records the confirmed watermark position.
func (r *Recorder) RecordWatermark(symbol, interval string, ts time.Time) {
	r.watermark.WithLabelValues(symbol, interval).Set(float64(ts.Unix()))
}
