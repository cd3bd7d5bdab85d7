package engine

import (
	"math"
	"time"
)

// yearFloor keeps trades-per-year total on degenerate date spans.
const yearFloor = 1e-9

// MaxDrawdown is the largest peak-to-trough fractional decline over an
// equity curve.
func MaxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	mdd := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > mdd {
				mdd = dd
			}
		}
	}
	return mdd
}

// AnnualizedReturn is the geometric annual growth rate implied by a
// start/end value pair over a calendar span, using a 365.25-day year.
// Degenerate inputs (non-positive span or start value) resolve to zero.
func AnnualizedReturn(startVal, endVal float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days < 1 {
		days = 1
	}
	years := days / 365.25
	if years <= 0 || startVal <= 0 {
		return 0
	}
	return math.Pow(endVal/startVal, 1/years) - 1
}

func elapsedYears(start, end time.Time) float64 {
	years := end.Sub(start).Hours() / 24 / 365.25
	if years < yearFloor {
		return yearFloor
	}
	return years
}
