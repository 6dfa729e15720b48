package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"midas/internal/domain/models"
	"midas/internal/domain/repository"
	applogger "midas/pkg/logger"
)

// Pipeline runs the full Parser -> Aggregator -> Loader chain for one
// (symbol, interval) pair. The chain is sequential and streaming; the
// orchestrator provides cross-pipeline parallelism.
type Pipeline struct {
	opener    repository.SourceOpener
	store     repository.BarStore
	metrics   repository.Metrics
	batchSize int
	loc       *time.Location
	l         *applogger.Logger
}

func NewPipeline(
	opener repository.SourceOpener,
	store repository.BarStore,
	metrics repository.Metrics,
	batchSize int,
	loc *time.Location,
	l *applogger.Logger,
) *Pipeline {
	if batchSize < 1 {
		batchSize = 1000
	}
	return &Pipeline{opener: opener, store: store, metrics: metrics, batchSize: batchSize, loc: loc, l: l}
}

// Run ingests one (symbol, interval) pair and reports the outcome.
// Fatal errors are captured in the report, never returned: failure
// isolation happens here, at the pipeline boundary.
func (p *Pipeline) Run(ctx context.Context, symbol string, iv models.Interval) models.PipelineReport {
	start := time.Now()
	rep := models.PipelineReport{Symbol: symbol, Interval: iv.Name, Status: models.StatusSuccess}
	defer func() {
		rep.Duration = time.Since(start)
		p.metrics.RecordPipelineDuration(symbol, iv.Name, time.Since(start).Seconds())
	}()

	fail := func(err error) models.PipelineReport {
		rep.Status = models.StatusFailed
		rep.Error = err.Error()
		p.metrics.RecordError(errorKind(err))
		p.l.Error("pipeline failed",
			applogger.String("symbol", symbol),
			applogger.String("interval", iv.Name),
			applogger.Error(err),
		)
		return rep
	}

	if err := p.store.EnsureTable(ctx, symbol, iv); err != nil {
		return fail(err)
	}

	watermark, hasWM, err := p.store.Watermark(ctx, symbol, iv)
	if err != nil {
		return fail(err)
	}
	if hasWM {
		wm := watermark
		rep.WatermarkBefore = &wm
		rep.WatermarkAfter = &wm
	}

	reader, err := p.opener.Open(ctx, symbol)
	if err != nil {
		return fail(err)
	}
	defer reader.Close()

	agg := NewBucketAggregator(iv, p.loc)
	batch := make([]models.Bar, 0, p.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		newWM := batch[len(batch)-1].BucketStart
		if err := p.store.UpsertBatch(ctx, symbol, iv, batch, newWM); err != nil {
			return err
		}
		rep.BarsLoaded += int64(len(batch))
		wm := newWM
		rep.WatermarkAfter = &wm
		p.metrics.RecordBarsLoaded(symbol, iv.Name, int64(len(batch)))
		p.metrics.RecordWatermark(symbol, iv.Name, newWM)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(err)
		}

		if hasWM && !iv.Floor(rec.Timestamp, p.loc).After(watermark) {
			rep.RowsSkipped++
			continue
		}

		bar, done := agg.Add(rec)
		if !done {
			continue
		}
		batch = append(batch, bar)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
			// cancellation is only honored between transactions
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
		}
	}

	if err := flush(); err != nil {
		return fail(err)
	}

	if pending, ok := agg.Pending(); ok {
		p.l.Debug("withholding trailing partial bucket",
			applogger.String("symbol", symbol),
			applogger.String("interval", iv.Name),
			applogger.Time("bucket_start", pending.BucketStart),
			applogger.Int64("records", pending.RecordCount),
		)
	}

	stats := reader.Stats()
	rep.Malformed = stats.Malformed
	rep.Dropped = stats.Dropped
	rep.Duplicates = stats.Duplicates
	p.metrics.RecordRowsSkipped(symbol, iv.Name, rep.RowsSkipped)
	p.metrics.RecordMalformed(symbol, stats.Malformed)
	p.metrics.RecordDropped(symbol, stats.Dropped)

	if stats.Malformed > 0 || stats.Dropped > 0 {
		rep.Status = models.StatusPartial
	}
	return rep
}

// errorKind maps an error to the metrics label for its failure mode.
func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, models.ErrSchemaConflict):
		return "schema_conflict"
	case errors.Is(err, models.ErrWatermarkRegression):
		return "watermark_regression"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "store"
	}
}
