package models

import "time"

// RawRecord is one finest-grain source row, normalized so that tick
// sources (single price) and pre-aggregated kline sources merge the
// same way. For a tick, Open == High == Low == Close.
type RawRecord struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Bar is one OHLCV aggregate for a (symbol, interval) bucket.
// BucketStart is the left-closed boundary of the bucket window and the
// primary key of the target table.
type Bar struct {
	BucketStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	RecordCount int64
}

// Merge folds one record into the bar. The first record seen sets the
// open; close follows arrival order, not price.
func (b *Bar) Merge(r RawRecord) {
	if b.RecordCount == 0 {
		b.Open = r.Open
		b.High = r.High
		b.Low = r.Low
	} else {
		if r.High > b.High {
			b.High = r.High
		}
		if r.Low < b.Low {
			b.Low = r.Low
		}
	}
	b.Close = r.Close
	b.Volume += r.Volume
	b.RecordCount++
}
