package csvfile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"midas/internal/domain/models"
)

func readAll(t *testing.T, r *Reader) []models.RawRecord {
	t.Helper()
	var out []models.RawRecord
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, rec)
	}
}

func newTestReader(t *testing.T, data string, window int) *Reader {
	t.Helper()
	r, err := newReader(io.NopCloser(strings.NewReader(data)), "BTCUSDT", window, nil)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	return r
}

func TestReaderKlineHeader(t *testing.T) {
	data := "open_time,open,high,low,close,volume\n" +
		"1709640000000,10,12,9,11,3.5\n" +
		"1709640060000,11,11.5,10.5,11.2,1.5\n"
	r := newTestReader(t, data, 4)
	recs := readAll(t, r)

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Open != 10 || recs[0].High != 12 || recs[0].Low != 9 || recs[0].Close != 11 || recs[0].Volume != 3.5 {
		t.Fatalf("unexpected record %+v", recs[0])
	}
	want := time.UnixMilli(1709640000000)
	if !recs[0].Timestamp.Equal(want) {
		t.Fatalf("unexpected timestamp %v, want %v", recs[0].Timestamp, want)
	}
}

func TestReaderHeaderlessKline(t *testing.T) {
	data := "1709640000000,10,12,9,11,3.5,1709640059999\n" +
		"1709640060000,11,11.5,10.5,11.2,1.5,1709640119999\n"
	r := newTestReader(t, data, 4)
	recs := readAll(t, r)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[1].Close != 11.2 {
		t.Fatalf("unexpected record %+v", recs[1])
	}
}

func TestReaderTickFormat(t *testing.T) {
	data := "timestamp,price,volume\n" +
		"1709640000,100.5,2\n"
	r := newTestReader(t, data, 4)
	recs := readAll(t, r)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Open != 100.5 || rec.High != 100.5 || rec.Low != 100.5 || rec.Close != 100.5 {
		t.Fatalf("tick must normalize to O=H=L=C, got %+v", rec)
	}
}

func TestReaderSkipsMalformed(t *testing.T) {
	data := "open_time,open,high,low,close,volume\n" +
		"1709640000000,10,12,9,11,3.5\n" +
		"not-a-time,10,12,9,11,3.5\n" +
		"1709640060000,xx,12,9,11,3.5\n" +
		"1709640120000,11,11.5,10.5,11.2,1.5\n"
	r := newTestReader(t, data, 4)
	recs := readAll(t, r)

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	stats := r.Stats()
	if stats.Malformed != 2 {
		t.Fatalf("expected 2 malformed, got %d", stats.Malformed)
	}
	if stats.Rows != 2 {
		t.Fatalf("expected 2 good rows, got %d", stats.Rows)
	}
}

func TestReaderReordersWithinWindow(t *testing.T) {
	data := "open_time,open,high,low,close,volume\n" +
		"1709640000000,1,1,1,1,1\n" +
		"1709640120000,3,3,3,3,1\n" +
		"1709640060000,2,2,2,2,1\n" +
		"1709640180000,4,4,4,4,1\n"
	r := newTestReader(t, data, 4)
	recs := readAll(t, r)

	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Timestamp.Before(recs[i-1].Timestamp) {
			t.Fatalf("records out of order at %d: %v < %v", i, recs[i].Timestamp, recs[i-1].Timestamp)
		}
	}
	if r.Stats().Dropped != 0 {
		t.Fatalf("nothing should be dropped inside the window")
	}
}

func TestReaderDropsBeyondWindow(t *testing.T) {
	data := "open_time,open,high,low,close,volume\n" +
		"1709640000000,1,1,1,1,1\n" +
		"1709640120000,3,3,3,3,1\n" +
		"1709640060000,2,2,2,2,1\n"
	r := newTestReader(t, data, 1)
	recs := readAll(t, r)

	// window of 1 cannot reorder: the late row is dropped
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if r.Stats().Dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", r.Stats().Dropped)
	}
}

func TestReaderKeepsFirstDuplicate(t *testing.T) {
	data := "open_time,open,high,low,close,volume\n" +
		"1709640000000,1,1,1,1,1\n" +
		"1709640000000,2,2,2,2,1\n" +
		"1709640060000,3,3,3,3,1\n"
	r := newTestReader(t, data, 8)
	recs := readAll(t, r)

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Open != 1 {
		t.Fatalf("first-seen duplicate must win, got %+v", recs[0])
	}
	if r.Stats().Duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", r.Stats().Duplicates)
	}
}

func TestReaderEmptySource(t *testing.T) {
	r := newTestReader(t, "", 4)
	if recs := readAll(t, r); len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}

func TestOpenerMissingFile(t *testing.T) {
	o := NewOpener(t.TempDir(), "{symbol}_1m.csv", 4, nil)
	_, err := o.Open(context.Background(), "BTCUSDT")
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestOpenerResolvesPattern(t *testing.T) {
	dir := t.TempDir()
	data := "open_time,open,high,low,close,volume\n1709640000000,10,12,9,11,3.5\n"
	if err := os.WriteFile(filepath.Join(dir, "btcusdt_1m.csv"), []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	o := NewOpener(dir, "{symbol}_1m.csv", 4, nil)
	r, err := o.Open(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, err := r.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}
