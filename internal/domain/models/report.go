package models

import "time"

// PipelineStatus is the final state of one (symbol, interval) pipeline.
type PipelineStatus string

const (
	StatusSuccess PipelineStatus = "success"
	StatusPartial PipelineStatus = "partial" // finished, but rows were skipped or dropped
	StatusFailed  PipelineStatus = "failed"
)

// PipelineReport is the per-pipeline entry of the run report consumed
// by the reporting CLI.
type PipelineReport struct {
	Symbol          string         `json:"symbol"`
	Interval        string         `json:"interval"`
	Status          PipelineStatus `json:"status"`
	BarsLoaded      int64          `json:"bars_loaded"`
	RowsSkipped     int64          `json:"rows_skipped"` // source rows at or below the watermark
	Malformed       int64          `json:"malformed_records"`
	Dropped         int64          `json:"dropped_out_of_order"`
	Duplicates      int64          `json:"duplicate_records"`
	WatermarkBefore *time.Time     `json:"watermark_before,omitempty"`
	WatermarkAfter  *time.Time     `json:"watermark_after,omitempty"`
	Error           string         `json:"error,omitempty"`
	Duration        time.Duration  `json:"duration_ms"`
}

// RunReport aggregates all pipelines of one ingestion run.
type RunReport struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Pipelines  []PipelineReport `json:"pipelines"`
	Failed     int              `json:"failed"`
}

// Ok reports whether every pipeline completed without a fatal error.
func (r *RunReport) Ok() bool { return r.Failed == 0 }

// TableReport is the Verifier output for one physical table.
type TableReport struct {
	Symbol         string      `json:"symbol"`
	Interval       string      `json:"interval"`
	Table          string      `json:"table"`
	RowCount       int64       `json:"row_count"`
	MinBucket      *time.Time  `json:"min_bucket,omitempty"`
	MaxBucket      *time.Time  `json:"max_bucket,omitempty"`
	GapCount       int64       `json:"gap_count"`
	MissingBuckets []time.Time `json:"missing_buckets,omitempty"` // capped sample
}

// VerifyReport covers a whole verification pass.
type VerifyReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Tables      []TableReport `json:"tables"`
}
