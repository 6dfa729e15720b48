package models

import (
	"testing"
	"time"
)

func mustInterval(t *testing.T, s string) Interval {
	t.Helper()
	iv, err := ParseInterval(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return iv
}

func TestParseInterval(t *testing.T) {
	iv := mustInterval(t, "15m")
	if iv.N != 15 || iv.Unit != unitMinute {
		t.Fatalf("unexpected interval %+v", iv)
	}
	iv = mustInterval(t, "1M")
	if iv.N != 1 || iv.Unit != unitMonth {
		t.Fatalf("unexpected interval %+v", iv)
	}
	for _, bad := range []string{"", "m", "0m", "-5m", "5x", "1.5h"} {
		if _, err := ParseInterval(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseIntervalsDefaults(t *testing.T) {
	ivs, err := ParseIntervals(DefaultIntervals)
	if err != nil {
		t.Fatalf("default grid must parse: %v", err)
	}
	if len(ivs) != 15 {
		t.Fatalf("expected 15 intervals, got %d", len(ivs))
	}
}

func TestFloorSubDay(t *testing.T) {
	ts := time.Date(2024, 3, 5, 13, 47, 12, 0, time.UTC)

	got := mustInterval(t, "15m").Floor(ts, time.UTC)
	want := time.Date(2024, 3, 5, 13, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("15m floor = %v, want %v", got, want)
	}

	got = mustInterval(t, "4h").Floor(ts, time.UTC)
	want = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("4h floor = %v, want %v", got, want)
	}
}

func TestFloorAlignsToExchangeMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 02:10 New York time must land in the 00:00 local 4h bucket even
	// though UTC midnight is hours away.
	ts := time.Date(2024, 3, 5, 2, 10, 0, 0, loc)
	got := mustInterval(t, "4h").Floor(ts, loc)
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("4h floor = %v, want %v", got, want)
	}
}

func TestFloorCalendar(t *testing.T) {
	// Wednesday
	ts := time.Date(2024, 3, 6, 18, 30, 0, 0, time.UTC)

	got := mustInterval(t, "1d").Floor(ts, time.UTC)
	want := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("1d floor = %v, want %v", got, want)
	}

	got = mustInterval(t, "1w").Floor(ts, time.UTC)
	want = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // Monday
	if !got.Equal(want) {
		t.Fatalf("1w floor = %v, want %v", got, want)
	}

	got = mustInterval(t, "1M").Floor(ts, time.UTC)
	want = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("1M floor = %v, want %v", got, want)
	}
}

func TestFloorMultiDayStable(t *testing.T) {
	iv := mustInterval(t, "3d")
	// consecutive days must share or advance the 3d bucket, never skip
	prev := iv.Floor(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	for day := 2; day <= 31; day++ {
		ts := time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC)
		cur := iv.Floor(ts, time.UTC)
		if cur.Before(prev) {
			t.Fatalf("3d bucket went backwards at day %d: %v < %v", day, cur, prev)
		}
		if cur.After(prev) && !cur.Equal(iv.Next(prev, time.UTC)) {
			t.Fatalf("3d bucket skipped at day %d: %v after %v", day, cur, prev)
		}
		prev = cur
	}
}

func TestNext(t *testing.T) {
	cases := []struct {
		iv    string
		start time.Time
		want  time.Time
	}{
		{"5m", time.Date(2024, 3, 5, 13, 45, 0, 0, time.UTC), time.Date(2024, 3, 5, 13, 50, 0, 0, time.UTC)},
		{"12h", time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
		{"1w", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"1M", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got := mustInterval(t, c.iv).Next(c.start, time.UTC)
		if !got.Equal(c.want) {
			t.Fatalf("%s next(%v) = %v, want %v", c.iv, c.start, got, c.want)
		}
	}
}

func TestTableSuffix(t *testing.T) {
	if s := mustInterval(t, "1m").TableSuffix(); s != "1m" {
		t.Fatalf("unexpected suffix %q", s)
	}
	// months never collide with minutes in case-folded identifiers
	if s := mustInterval(t, "1M").TableSuffix(); s != "1mo" {
		t.Fatalf("unexpected suffix %q", s)
	}
}

func TestBarMerge(t *testing.T) {
	var b Bar
	b.Merge(RawRecord{Open: 10, High: 10, Low: 10, Close: 10, Volume: 1})
	b.Merge(RawRecord{Open: 12, High: 12, Low: 12, Close: 12, Volume: 2})
	b.Merge(RawRecord{Open: 9, High: 9, Low: 9, Close: 9, Volume: 3})

	if b.Open != 10 || b.High != 12 || b.Low != 9 || b.Close != 9 {
		t.Fatalf("unexpected OHLC %+v", b)
	}
	if b.Volume != 6 || b.RecordCount != 3 {
		t.Fatalf("unexpected volume/count %+v", b)
	}
}
