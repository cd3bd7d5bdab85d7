// Package engine implements the strategy simulation and search core:
// indicator precomputation, the indicator-driven position state machine,
// the lot-based threshold trader, and the randomized/grid optimizers.
//
// Everything here is pure computation over in-memory data. No I/O, no
// logging, no shared state across evaluations.
package engine

import (
	"gonum.org/v1/gonum/stat"
)

// Window ranges over which indicator families are precomputed. A search
// samples window parameters from inside these bounds, so every value a
// strategy can ask for exists in the table.
const (
	SMAMinWindow = 3
	SMAMaxWindow = 200

	RSIMinWindow = 5
	RSIMaxWindow = 30

	ZRetMinWindow = 10
	ZRetMaxWindow = 80
)

// Value is one indicator cell. Cells inside a window's warm-up period
// (and z-scores over zero-variance windows) are undefined; the evaluator
// branches on OK instead of comparing against a NaN sentinel.
type Value struct {
	F  float64
	OK bool
}

// Column is an indicator sequence aligned index-for-index with the
// price series it was computed from.
type Column []Value

// IndicatorTable holds every indicator column a search run can consult.
// Built once per price series, immutable afterwards, shared by all
// evaluations in the run.
type IndicatorTable struct {
	SMA  map[int]Column
	RSI  map[int]Column
	ZRet map[int]Column
}

// Precompute builds the full indicator table for a close-price sequence.
// A search run shares one table across all of its evaluations.
func Precompute(closes []float64) *IndicatorTable {
	t := &IndicatorTable{
		SMA:  make(map[int]Column, SMAMaxWindow-SMAMinWindow+1),
		RSI:  make(map[int]Column, RSIMaxWindow-RSIMinWindow+1),
		ZRet: make(map[int]Column, ZRetMaxWindow-ZRetMinWindow+1),
	}

	for w := SMAMinWindow; w <= SMAMaxWindow; w++ {
		t.SMA[w] = rollingMean(closes, w)
	}

	gains, losses := dailyGainsLosses(closes)
	for w := RSIMinWindow; w <= RSIMaxWindow; w++ {
		t.RSI[w] = wilderRSI(gains, losses, w)
	}

	rets := simpleReturns(closes)
	for w := ZRetMinWindow; w <= ZRetMaxWindow; w++ {
		t.ZRet[w] = zScoreReturns(rets, w)
	}

	return t
}

// rollingMean is the trailing arithmetic mean; undefined until the
// window is full.
func rollingMean(xs []float64, w int) Column {
	col := make(Column, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		if i >= w {
			sum -= xs[i-w]
		}
		if i >= w-1 {
			col[i] = Value{F: sum / float64(w), OK: true}
		}
	}
	return col
}

// dailyGainsLosses splits day-over-day close deltas into clipped gain
// and loss magnitudes. Index 0 has no delta and stays zero; RSI columns
// are undefined there.
func dailyGainsLosses(closes []float64) (gains, losses []float64) {
	gains = make([]float64, len(closes))
	losses = make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	return gains, losses
}

// wilderRSI smooths gains and losses exponentially with alpha = 1/w and
// derives the bounded 0-100 oscillator. When the loss side vanishes the
// value saturates at 100; when both sides vanish it sits at 50.
func wilderRSI(gains, losses []float64, w int) Column {
	col := make(Column, len(gains))
	if len(gains) < 2 {
		return col
	}

	alpha := 1.0 / float64(w)
	avgGain := gains[1]
	avgLoss := losses[1]
	for i := 1; i < len(gains); i++ {
		if i > 1 {
			avgGain = alpha*gains[i] + (1-alpha)*avgGain
			avgLoss = alpha*losses[i] + (1-alpha)*avgLoss
		}
		var rsi float64
		switch {
		case avgLoss == 0 && avgGain == 0:
			rsi = 50
		case avgLoss == 0:
			rsi = 100
		default:
			rs := avgGain / avgLoss
			rsi = 100 - 100/(1+rs)
		}
		col[i] = Value{F: rsi, OK: true}
	}
	return col
}

// simpleReturns is the day-over-day fractional change; index 0 carries
// no return.
func simpleReturns(closes []float64) []float64 {
	rets := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			rets[i] = closes[i]/closes[i-1] - 1
		}
	}
	return rets
}

// zScoreReturns standardizes the current return against the trailing
// rolling mean and sample standard deviation of returns. Undefined
// while the window still overlaps index 0 and wherever the window's
// standard deviation is zero.
func zScoreReturns(rets []float64, w int) Column {
	col := make(Column, len(rets))
	for i := w; i < len(rets); i++ {
		window := rets[i-w+1 : i+1]
		mu := stat.Mean(window, nil)
		sd := stat.StdDev(window, nil)
		if sd == 0 {
			continue
		}
		col[i] = Value{F: (rets[i] - mu) / sd, OK: true}
	}
	return col
}
