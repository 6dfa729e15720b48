package usecase

import (
	"testing"
	"time"

	"midas/internal/domain/models"
)

func minuteRecord(t *testing.T, hh, mm int, price, vol float64) models.RawRecord {
	t.Helper()
	ts := time.Date(2024, 3, 5, hh, mm, 0, 0, time.UTC)
	return models.RawRecord{Timestamp: ts, Open: price, High: price, Low: price, Close: price, Volume: vol}
}

func TestAggregatorOHLCV(t *testing.T) {
	iv, _ := models.ParseInterval("5m")
	agg := NewBucketAggregator(iv, time.UTC)

	if _, done := agg.Add(minuteRecord(t, 10, 0, 10, 1)); done {
		t.Fatalf("first record must not complete a bar")
	}
	if _, done := agg.Add(minuteRecord(t, 10, 1, 12, 1)); done {
		t.Fatalf("same bucket must not complete a bar")
	}
	if _, done := agg.Add(minuteRecord(t, 10, 4, 9, 1)); done {
		t.Fatalf("same bucket must not complete a bar")
	}

	bar, done := agg.Add(minuteRecord(t, 10, 5, 11, 1))
	if !done {
		t.Fatalf("boundary crossing must emit the previous bar")
	}
	if !bar.BucketStart.Equal(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bucket start %v", bar.BucketStart)
	}
	if bar.Open != 10 || bar.High != 12 || bar.Low != 9 || bar.Close != 9 {
		t.Fatalf("unexpected OHLC %+v", bar)
	}
	if bar.Volume != 3 || bar.RecordCount != 3 {
		t.Fatalf("unexpected volume/count %+v", bar)
	}
}

func TestAggregatorNoSyntheticBars(t *testing.T) {
	iv, _ := models.ParseInterval("1m")
	agg := NewBucketAggregator(iv, time.UTC)

	agg.Add(minuteRecord(t, 10, 0, 10, 1))
	// a 10-minute gap: no bars may be emitted for the empty buckets
	bar, done := agg.Add(minuteRecord(t, 10, 10, 11, 1))
	if !done {
		t.Fatalf("expected the 10:00 bar")
	}
	if !bar.BucketStart.Equal(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bucket start %v", bar.BucketStart)
	}
	pending, ok := agg.Pending()
	if !ok {
		t.Fatalf("expected an open trailing bucket")
	}
	if !pending.BucketStart.Equal(time.Date(2024, 3, 5, 10, 10, 0, 0, time.UTC)) {
		t.Fatalf("unexpected pending bucket %v", pending.BucketStart)
	}
}

func TestAggregatorWithholdsTrailingBucket(t *testing.T) {
	iv, _ := models.ParseInterval("5m")
	agg := NewBucketAggregator(iv, time.UTC)

	agg.Add(minuteRecord(t, 10, 0, 10, 1))
	agg.Add(minuteRecord(t, 10, 2, 11, 1))

	// source exhausted mid-window: the bucket stays pending, never emitted
	pending, ok := agg.Pending()
	if !ok {
		t.Fatalf("expected a pending bucket")
	}
	if pending.RecordCount != 2 {
		t.Fatalf("unexpected pending count %d", pending.RecordCount)
	}
}

func TestAggregatorEmpty(t *testing.T) {
	iv, _ := models.ParseInterval("5m")
	agg := NewBucketAggregator(iv, time.UTC)
	if _, ok := agg.Pending(); ok {
		t.Fatalf("empty aggregator must have no pending bucket")
	}
}
