package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"midas/internal/domain/models"
	"midas/internal/domain/repository"
	applogger "midas/pkg/logger"
)

// Orchestrator fans the (symbol x interval) cross product over a
// bounded worker pool. Pipelines are fully independent: every one
// re-reads its symbol's finest-grain stream rather than cascading from
// coarser output, so any table can be verified on its own. Failures
// stay inside their pipeline and end up in the run report.
type Orchestrator struct {
	pipeline  *Pipeline
	sink      repository.ReportSink // optional
	symbols   []string
	intervals []models.Interval
	workers   int
	l         *applogger.Logger
}

func NewOrchestrator(
	pipeline *Pipeline,
	sink repository.ReportSink,
	symbols []string,
	intervals []models.Interval,
	workers int,
	l *applogger.Logger,
) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		pipeline:  pipeline,
		sink:      sink,
		symbols:   symbols,
		intervals: intervals,
		workers:   workers,
		l:         l,
	}
}

type job struct {
	symbol string
	iv     models.Interval
}

// Run executes every pipeline and returns the aggregated run report.
func (o *Orchestrator) Run(ctx context.Context) *models.RunReport {
	report := &models.RunReport{StartedAt: time.Now()}

	total := len(o.symbols) * len(o.intervals)
	jobs := make(chan job)
	results := make(chan models.PipelineReport, total)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				rep := o.pipeline.Run(ctx, j.symbol, j.iv)
				o.publish(ctx, rep)
				results <- rep
			}
		}()
	}

	o.l.Info("ingestion run started",
		applogger.Int("pipelines", total),
		applogger.Int("workers", o.workers),
	)

	for _, symbol := range o.symbols {
		for _, iv := range o.intervals {
			jobs <- job{symbol: symbol, iv: iv}
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for rep := range results {
		if rep.Status == models.StatusFailed {
			report.Failed++
		}
		report.Pipelines = append(report.Pipelines, rep)
	}
	o.sortReport(report)
	report.FinishedAt = time.Now()

	o.l.Info("ingestion run finished",
		applogger.Int("pipelines", total),
		applogger.Int("failed", report.Failed),
		applogger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

func (o *Orchestrator) publish(ctx context.Context, rep models.PipelineReport) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Publish(ctx, rep); err != nil {
		o.l.Warn("report publish failed",
			applogger.String("symbol", rep.Symbol),
			applogger.String("interval", rep.Interval),
			applogger.Error(err),
		)
	}
}

// sortReport orders pipelines by configured symbol then interval order
// so the report is stable across runs.
func (o *Orchestrator) sortReport(report *models.RunReport) {
	symPos := make(map[string]int, len(o.symbols))
	for i, s := range o.symbols {
		symPos[s] = i
	}
	ivPos := make(map[string]int, len(o.intervals))
	for i, iv := range o.intervals {
		ivPos[iv.Name] = i
	}
	sort.SliceStable(report.Pipelines, func(i, j int) bool {
		a, b := report.Pipelines[i], report.Pipelines[j]
		if symPos[a.Symbol] != symPos[b.Symbol] {
			return symPos[a.Symbol] < symPos[b.Symbol]
		}
		return ivPos[a.Interval] < ivPos[b.Interval]
	})
}
