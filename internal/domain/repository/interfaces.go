package repository

import (
	"context"
	"time"

	"midas/internal/domain/models"
)

// SourceStats carries the recoverable-diagnostic counters of one read.
type SourceStats struct {
	Rows       int64
	Malformed  int64
	Dropped    int64 // out-of-order beyond the reorder window
	Duplicates int64
}

// RecordReader yields raw records in non-decreasing timestamp order.
// Next returns io.EOF when the source is exhausted.
type RecordReader interface {
	Next() (models.RawRecord, error)
	Stats() SourceStats
	Close() error
}

// SourceOpener opens the raw source for one symbol.
// Open fails with models.ErrSourceUnavailable if the source cannot be
// opened; that is fatal for every pipeline of the symbol.
type SourceOpener interface {
	Open(ctx context.Context, symbol string) (RecordReader, error)
}

// BarStore is the persistence boundary: per-(symbol, interval) tables,
// the watermark metadata table, and the read side used by the Verifier.
type BarStore interface {
	// EnsureTable creates the table for (symbol, interval) if absent and
	// verifies an existing one; incompatible structure fails with
	// models.ErrSchemaConflict.
	EnsureTable(ctx context.Context, symbol string, iv models.Interval) error

	// Watermark returns the last confirmed bucket start, or ok=false if
	// the table has never been loaded.
	Watermark(ctx context.Context, symbol string, iv models.Interval) (time.Time, bool, error)

	// UpsertBatch writes bars (non-decreasing bucket order) and advances
	// the watermark in one transaction. A watermark behind the stored one
	// fails with models.ErrWatermarkRegression and writes nothing.
	UpsertBatch(ctx context.Context, symbol string, iv models.Interval, bars []models.Bar, watermark time.Time) error

	// TableStats reports row count and bucket range; min/max are nil for
	// an empty table.
	TableStats(ctx context.Context, symbol string, iv models.Interval) (count int64, min, max *time.Time, err error)

	// BucketStarts returns every bucket start in ascending order.
	BucketStarts(ctx context.Context, symbol string, iv models.Interval) ([]time.Time, error)

	Health(ctx context.Context) error
}

// ReportSink receives per-pipeline completion reports, e.g. a Kafka
// topic for downstream run tracking.
type ReportSink interface {
	Publish(ctx context.Context, r models.PipelineReport) error
	Close() error
}

// Metrics is the instrumentation boundary for the ingestion engine.
type Metrics interface {
	RecordBarsLoaded(symbol, interval string, n int64)
	RecordRowsSkipped(symbol, interval string, n int64)
	RecordMalformed(symbol string, n int64)
	RecordDropped(symbol string, n int64)
	RecordError(kind string)
	RecordPipelineDuration(symbol, interval string, seconds float64)
	RecordWatermark(symbol, interval string, ts time.Time)
}
