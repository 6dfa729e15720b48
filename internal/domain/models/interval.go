package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// intervalUnit distinguishes fixed-width intervals from calendar ones.
// Minute and hour buckets are floored against midnight exchange time;
// day, week and month buckets follow calendar boundaries.
type intervalUnit int

const (
	unitMinute intervalUnit = iota
	unitHour
	unitDay
	unitWeek
	unitMonth
)

// Interval is one bar resolution, e.g. "5m", "4h", "1d", "1M".
type Interval struct {
	Name string
	N    int
	Unit intervalUnit
}

// DefaultIntervals is the resolution grid derived for every symbol,
// smallest to largest.
var DefaultIntervals = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "6h", "8h", "12h",
	"1d", "3d", "1w", "1M",
}

// ParseInterval parses strings like "15m", "4h", "3d", "1w", "1M".
// Lowercase "m" is minutes, uppercase "M" is months.
func ParseInterval(s string) (Interval, error) {
	if len(s) < 2 {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	var unit intervalUnit
	switch s[len(s)-1] {
	case 'm':
		unit = unitMinute
	case 'h':
		unit = unitHour
	case 'd':
		unit = unitDay
	case 'w':
		unit = unitWeek
	case 'M':
		unit = unitMonth
	default:
		return Interval{}, fmt.Errorf("invalid interval unit in %q", s)
	}
	return Interval{Name: s, N: n, Unit: unit}, nil
}

// ParseIntervals parses a list, preserving order.
func ParseIntervals(names []string) ([]Interval, error) {
	out := make([]Interval, 0, len(names))
	for _, s := range names {
		iv, err := ParseInterval(s)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

func (iv Interval) String() string { return iv.Name }

// width returns the fixed duration for minute and hour intervals.
func (iv Interval) width() time.Duration {
	switch iv.Unit {
	case unitMinute:
		return time.Duration(iv.N) * time.Minute
	case unitHour:
		return time.Duration(iv.N) * time.Hour
	}
	return 0
}

// Floor returns the bucket start containing t. Sub-day intervals are
// aligned to midnight exchange time, day intervals to calendar days
// counted from the Unix epoch, weeks to Monday, months to the first of
// the month.
func (iv Interval) Floor(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	switch iv.Unit {
	case unitMinute, unitHour:
		w := iv.width()
		return midnight.Add(t.Sub(midnight) / w * w)
	case unitDay:
		// civil days since the Unix epoch, independent of the exchange offset
		days := int(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400)
		rem := ((days % iv.N) + iv.N) % iv.N
		return midnight.AddDate(0, 0, -rem)
	case unitWeek:
		// back to Monday
		wd := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -wd)
	case unitMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	}
	return midnight
}

// Next returns the start of the bucket following the one starting at
// bucketStart.
func (iv Interval) Next(bucketStart time.Time, loc *time.Location) time.Time {
	bucketStart = bucketStart.In(loc)
	switch iv.Unit {
	case unitMinute, unitHour:
		return bucketStart.Add(iv.width())
	case unitDay:
		return bucketStart.AddDate(0, 0, iv.N)
	case unitWeek:
		return bucketStart.AddDate(0, 0, 7*iv.N)
	case unitMonth:
		return bucketStart.AddDate(0, iv.N, 0)
	}
	return bucketStart
}

// TableSuffix returns the interval part of a physical table name.
// Months map to "mo" because unquoted Postgres identifiers fold case
// and "1M" would collide with "1m".
func (iv Interval) TableSuffix() string {
	if iv.Unit == unitMonth {
		return fmt.Sprintf("%dmo", iv.N)
	}
	return strings.ToLower(iv.Name)
}
