package usecase

import (
	"time"

	"midas/internal/domain/models"
)

// BucketAggregator reduces an ordered record stream into bars for one
// interval. Memory is bounded to the single open bucket: a bar is
// emitted as soon as a record lands past its window, and a bucket with
// no records is never emitted at all.
type BucketAggregator struct {
	iv   models.Interval
	loc  *time.Location
	open *models.Bar
}

func NewBucketAggregator(iv models.Interval, loc *time.Location) *BucketAggregator {
	return &BucketAggregator{iv: iv, loc: loc}
}

// Add folds one record in. When the record starts a new bucket, the
// previous bucket is complete and returned with ok=true.
// Records must arrive in non-decreasing timestamp order.
func (a *BucketAggregator) Add(rec models.RawRecord) (models.Bar, bool) {
	bucket := a.iv.Floor(rec.Timestamp, a.loc)

	if a.open == nil {
		a.open = &models.Bar{BucketStart: bucket}
		a.open.Merge(rec)
		return models.Bar{}, false
	}
	if bucket.Equal(a.open.BucketStart) {
		a.open.Merge(rec)
		return models.Bar{}, false
	}

	done := *a.open
	a.open = &models.Bar{BucketStart: bucket}
	a.open.Merge(rec)
	return done, true
}

// Pending returns the still-open trailing bucket, if any. The caller
// withholds it: the source ended mid-window and a later run may still
// complete the bar.
func (a *BucketAggregator) Pending() (models.Bar, bool) {
	if a.open == nil {
		return models.Bar{}, false
	}
	return *a.open, true
}
