package csvfile

import (
	"container/heap"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"midas/internal/domain/models"
	"midas/internal/domain/repository"
	applogger "midas/pkg/logger"
	"midas/pkg/util"
)

type sourceFormat int

const (
	formatTick  sourceFormat = iota // timestamp, price, volume
	formatKline                     // open_time, open, high, low, close, volume, ...
)

// columns holds resolved field positions for the detected format.
type columns struct {
	ts, price, vol         int
	open, high, low, close int
}

// Reader streams RawRecords from one CSV source in non-decreasing
// timestamp order. A bounded min-heap reorders slightly-shuffled input;
// records arriving out of order beyond the window are dropped and
// counted. Duplicate timestamps keep the first-seen record.
type Reader struct {
	symbol string
	csv    *csv.Reader
	closer io.Closer
	l      *applogger.Logger

	format sourceFormat
	cols   columns
	window int

	buf     recHeap
	seq     int64
	line    int
	eof     bool
	hasLast bool
	lastTS  time.Time

	stats repository.SourceStats
}

func newReader(rc io.ReadCloser, symbol string, window int, l *applogger.Logger) (*Reader, error) {
	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	r := &Reader{symbol: symbol, csv: cr, closer: rc, l: l, window: window}
	if err := r.detectFormat(); err != nil {
		return nil, err
	}
	heap.Init(&r.buf)
	return r, nil
}

// detectFormat reads the first row. A named header selects the tick or
// kline layout; a numeric first cell means a headerless kline file in
// the exchange export column order.
func (r *Reader) detectFormat() error {
	row, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			r.eof = true
			r.format = formatTick
			r.cols = columns{ts: 0, price: 1, vol: 2}
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}
	r.line++

	if _, numErr := strconv.ParseFloat(row[0], 64); numErr == nil {
		// headerless kline export
		if len(row) < 6 {
			return fmt.Errorf("headerless source has %d columns, want >= 6", len(row))
		}
		r.format = formatKline
		r.cols = columns{ts: 0, open: 1, high: 2, low: 3, close: 4, vol: 5}
		r.pushRow(row, r.line)
		return nil
	}

	idx := map[string]int{}
	for i, name := range row {
		idx[name] = i
	}
	if p, ok := idx["price"]; ok {
		ts, tok := idx["timestamp"]
		if !tok {
			return fmt.Errorf("tick source missing timestamp column")
		}
		vol, vok := idx["volume"]
		if !vok {
			return fmt.Errorf("tick source missing volume column")
		}
		r.format = formatTick
		r.cols = columns{ts: ts, price: p, vol: vol}
		return nil
	}
	need := []string{"open_time", "open", "high", "low", "close", "volume"}
	pos := make([]int, len(need))
	for i, name := range need {
		p, ok := idx[name]
		if !ok {
			return fmt.Errorf("kline source missing %s column", name)
		}
		pos[i] = p
	}
	r.format = formatKline
	r.cols = columns{ts: pos[0], open: pos[1], high: pos[2], low: pos[3], close: pos[4], vol: pos[5]}
	return nil
}

// Next returns the next record in timestamp order, io.EOF at the end.
func (r *Reader) Next() (models.RawRecord, error) {
	for {
		if r.eof || r.buf.Len() >= r.window {
			if r.buf.Len() == 0 {
				return models.RawRecord{}, io.EOF
			}
			item := heap.Pop(&r.buf).(bufRecord)
			if r.hasLast {
				if item.rec.Timestamp.Before(r.lastTS) {
					r.stats.Dropped++
					if r.l != nil {
						r.l.Warn("dropped out-of-order record",
							applogger.String("symbol", r.symbol),
							applogger.Int("line", item.line),
						)
					}
					continue
				}
				if item.rec.Timestamp.Equal(r.lastTS) {
					r.stats.Duplicates++
					continue
				}
			}
			r.hasLast = true
			r.lastTS = item.rec.Timestamp
			return item.rec, nil
		}

		row, err := r.csv.Read()
		if err != nil {
			if err == io.EOF {
				r.eof = true
				continue
			}
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				r.line++
				r.markMalformed(r.line, err.Error())
				continue
			}
			return models.RawRecord{}, fmt.Errorf("read source: %w", err)
		}
		r.line++
		r.pushRow(row, r.line)
	}
}

func (r *Reader) pushRow(row []string, line int) {
	rec, err := r.parseRow(row)
	if err != nil {
		r.markMalformed(line, err.Error())
		return
	}
	r.stats.Rows++
	r.seq++
	heap.Push(&r.buf, bufRecord{rec: rec, seq: r.seq, line: line})
}

func (r *Reader) parseRow(row []string) (models.RawRecord, error) {
	get := func(i int) (float64, error) {
		if i >= len(row) {
			return 0, fmt.Errorf("missing column %d", i)
		}
		return strconv.ParseFloat(row[i], 64)
	}

	if r.cols.ts >= len(row) {
		return models.RawRecord{}, fmt.Errorf("missing timestamp column")
	}
	ts, ok := util.ParseTime(row[r.cols.ts])
	if !ok {
		return models.RawRecord{}, fmt.Errorf("bad timestamp %q", row[r.cols.ts])
	}

	var rec models.RawRecord
	rec.Timestamp = ts
	switch r.format {
	case formatTick:
		price, err := get(r.cols.price)
		if err != nil {
			return models.RawRecord{}, fmt.Errorf("bad price: %v", err)
		}
		vol, err := get(r.cols.vol)
		if err != nil {
			return models.RawRecord{}, fmt.Errorf("bad volume: %v", err)
		}
		rec.Open, rec.High, rec.Low, rec.Close = price, price, price, price
		rec.Volume = vol
	case formatKline:
		var err error
		if rec.Open, err = get(r.cols.open); err != nil {
			return models.RawRecord{}, fmt.Errorf("bad open: %v", err)
		}
		if rec.High, err = get(r.cols.high); err != nil {
			return models.RawRecord{}, fmt.Errorf("bad high: %v", err)
		}
		if rec.Low, err = get(r.cols.low); err != nil {
			return models.RawRecord{}, fmt.Errorf("bad low: %v", err)
		}
		if rec.Close, err = get(r.cols.close); err != nil {
			return models.RawRecord{}, fmt.Errorf("bad close: %v", err)
		}
		if rec.Volume, err = get(r.cols.vol); err != nil {
			return models.RawRecord{}, fmt.Errorf("bad volume: %v", err)
		}
	}
	return rec, nil
}

func (r *Reader) markMalformed(line int, reason string) {
	r.stats.Malformed++
	if r.l != nil {
		merr := &models.MalformedRecordError{Line: line, Reason: reason}
		r.l.Warn("skipping malformed record",
			applogger.String("symbol", r.symbol),
			applogger.Error(merr),
		)
	}
}

func (r *Reader) Stats() repository.SourceStats { return r.stats }

func (r *Reader) Close() error { return r.closer.Close() }

// bufRecord is a heap entry; seq breaks timestamp ties so the
// first-seen record wins on duplicates.
type bufRecord struct {
	rec  models.RawRecord
	seq  int64
	line int
}

type recHeap []bufRecord

func (h recHeap) Len() int { return len(h) }
func (h recHeap) Less(i, j int) bool {
	if h[i].rec.Timestamp.Equal(h[j].rec.Timestamp) {
		return h[i].seq < h[j].seq
	}
	return h[i].rec.Timestamp.Before(h[j].rec.Timestamp)
}
func (h recHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *recHeap) Push(x interface{}) { *h = append(*h, x.(bufRecord)) }
func (h *recHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
