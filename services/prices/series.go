// Package prices holds the daily close-price series consumed by the
// simulation engine, plus loaders that normalize arbitrary broker CSV
// exports into it.
package prices

import (
	"time"
)

// Point is one trading day.
type Point struct {
	Date  time.Time
	Close float64
}

// Series is an ordered sequence of daily closes: strictly increasing by
// date, no duplicate dates, no gaps in values. Loaders guarantee the
// ordering; evaluators assume at least one row exists.
type Series []Point

func (s Series) Len() int { return len(s) }

// Closes returns the close column as a flat slice, aligned with the series.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// First and Last panic on an empty series, mirroring the engine's
// precondition that a series has at least one row.
func (s Series) First() Point { return s[0] }
func (s Series) Last() Point  { return s[len(s)-1] }

// Years returns the elapsed calendar span in 365.25-day years.
func (s Series) Years() float64 {
	if len(s) < 2 {
		return 0
	}
	days := s[len(s)-1].Date.Sub(s[0].Date).Hours() / 24
	return days / 365.25
}

// LastIndexOnOrBefore returns the index of the last point whose date is
// on or before d, or -1 when every point is later than d.
func (s Series) LastIndexOnOrBefore(d time.Time) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid].Date.After(d) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo - 1
}
