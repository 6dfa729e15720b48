package usecase

import (
	"context"
	"testing"
	"time"

	"midas/internal/domain/models"
)

func loadBars(t *testing.T, store *memStore, symbol string, iv models.Interval, minutes []int) {
	t.Helper()
	ctx := context.Background()
	if err := store.EnsureTable(ctx, symbol, iv); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	var bars []models.Bar
	var last time.Time
	for _, m := range minutes {
		ts := time.Date(2024, 3, 5, 10, m, 0, 0, time.UTC)
		bars = append(bars, models.Bar{BucketStart: ts, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1, RecordCount: 1})
		last = ts
	}
	if err := store.UpsertBatch(ctx, symbol, iv, bars, last); err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func TestVerifierFlagsGaps(t *testing.T) {
	iv, _ := models.ParseInterval("1m")
	store := newMemStore()
	loadBars(t, store, "BTCUSDT", iv, []int{0, 1, 2, 5, 6, 9})

	v := NewVerifier(store, []string{"BTCUSDT"}, []models.Interval{iv}, time.UTC)
	tr, err := v.VerifyTable(context.Background(), "BTCUSDT", iv)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if tr.RowCount != 6 {
		t.Fatalf("expected 6 rows, got %d", tr.RowCount)
	}
	// minutes 3, 4, 7, 8 are missing
	if tr.GapCount != 4 {
		t.Fatalf("expected 4 gaps, got %d", tr.GapCount)
	}
	if len(tr.MissingBuckets) != 4 {
		t.Fatalf("expected 4 sampled buckets, got %d", len(tr.MissingBuckets))
	}
	want := time.Date(2024, 3, 5, 10, 3, 0, 0, time.UTC)
	if !tr.MissingBuckets[0].Equal(want) {
		t.Fatalf("first missing bucket %v, want %v", tr.MissingBuckets[0], want)
	}
	if tr.MinBucket == nil || !tr.MinBucket.Equal(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected min bucket %v", tr.MinBucket)
	}
	if tr.MaxBucket == nil || !tr.MaxBucket.Equal(time.Date(2024, 3, 5, 10, 9, 0, 0, time.UTC)) {
		t.Fatalf("unexpected max bucket %v", tr.MaxBucket)
	}
}

func TestVerifierEmptyTable(t *testing.T) {
	iv, _ := models.ParseInterval("1m")
	store := newMemStore()
	if err := store.EnsureTable(context.Background(), "BTCUSDT", iv); err != nil {
		t.Fatalf("ensure table: %v", err)
	}

	v := NewVerifier(store, []string{"BTCUSDT"}, []models.Interval{iv}, time.UTC)
	tr, err := v.VerifyTable(context.Background(), "BTCUSDT", iv)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tr.RowCount != 0 || tr.GapCount != 0 || tr.MinBucket != nil {
		t.Fatalf("unexpected report %+v", tr)
	}
}

func TestVerifierRunCoversGrid(t *testing.T) {
	intervals, _ := models.ParseIntervals([]string{"1m", "5m"})
	store := newMemStore()
	for _, iv := range intervals {
		loadBars(t, store, "BTCUSDT", iv, []int{0})
	}

	v := NewVerifier(store, []string{"BTCUSDT"}, intervals, time.UTC)
	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Tables) != 2 {
		t.Fatalf("expected 2 table reports, got %d", len(report.Tables))
	}
}
