package engine

import (
	"math"
	"testing"
)

func TestRollingMeanKnownValues(t *testing.T) {
	col := rollingMean([]float64{1, 2, 3, 4, 5}, 3)

	for i := 0; i < 2; i++ {
		if col[i].OK {
			t.Errorf("index %d inside warm-up should be undefined", i)
		}
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		v := col[i+2]
		if !v.OK {
			t.Fatalf("index %d should be defined", i+2)
		}
		if math.Abs(v.F-w) > 1e-12 {
			t.Errorf("sma[%d] = %v, want %v", i+2, v.F, w)
		}
	}
}

func TestWilderRSISaturation(t *testing.T) {
	up := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109}
	gains, losses := dailyGainsLosses(up)
	col := wilderRSI(gains, losses, 5)

	if col[0].OK {
		t.Error("rsi at index 0 should be undefined")
	}
	for i := 1; i < len(up); i++ {
		if !col[i].OK {
			t.Fatalf("rsi[%d] should be defined", i)
		}
		if col[i].F != 100 {
			t.Errorf("rsi[%d] on pure gains = %v, want 100", i, col[i].F)
		}
	}
}

func TestWilderRSIFlatSeries(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 50
	}
	gains, losses := dailyGainsLosses(flat)
	col := wilderRSI(gains, losses, 14)

	for i := 1; i < len(flat); i++ {
		if !col[i].OK || col[i].F != 50 {
			t.Errorf("rsi[%d] on flat closes = %+v, want 50", i, col[i])
		}
	}
}

func TestWilderRSIBounded(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/3)
	}
	gains, losses := dailyGainsLosses(closes)
	col := wilderRSI(gains, losses, 14)

	for i, v := range col {
		if !v.OK {
			continue
		}
		if v.F < 0 || v.F > 100 {
			t.Errorf("rsi[%d] = %v outside [0,100]", i, v.F)
		}
	}
}

func TestZScoreWarmUpAndZeroVariance(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 75
	}
	col := zScoreReturns(simpleReturns(flat), 10)
	for i, v := range col {
		if v.OK {
			t.Errorf("z[%d] on a flat series should be undefined", i)
		}
	}

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i))
	}
	col = zScoreReturns(simpleReturns(closes), 10)
	for i := 0; i < 10; i++ {
		if col[i].OK {
			t.Errorf("z[%d] inside warm-up should be undefined", i)
		}
	}
	for i := 10; i < len(closes); i++ {
		if !col[i].OK {
			t.Fatalf("z[%d] should be defined", i)
		}
		if math.IsNaN(col[i].F) || math.IsInf(col[i].F, 0) {
			t.Errorf("z[%d] = %v, want finite", i, col[i].F)
		}
	}
}

func TestPrecomputeCoversAllWindows(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	table := Precompute(closes)

	for w := SMAMinWindow; w <= SMAMaxWindow; w++ {
		col, ok := table.SMA[w]
		if !ok || len(col) != len(closes) {
			t.Fatalf("sma window %d missing or misaligned", w)
		}
	}
	for w := RSIMinWindow; w <= RSIMaxWindow; w++ {
		col, ok := table.RSI[w]
		if !ok || len(col) != len(closes) {
			t.Fatalf("rsi window %d missing or misaligned", w)
		}
	}
	for w := ZRetMinWindow; w <= ZRetMaxWindow; w++ {
		col, ok := table.ZRet[w]
		if !ok || len(col) != len(closes) {
			t.Fatalf("z-score window %d missing or misaligned", w)
		}
	}
}
