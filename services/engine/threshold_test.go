package engine

import (
	"math"
	"testing"
)

func TestEvaluateThresholdHandTraced(t *testing.T) {
	// Day 2 drops 10% (buys 10 shares at 90), day 3 rallies past the 4%
	// threshold (sells all 10 at 99), day 4's dip is too shallow to act on.
	closes := []float64{100, 100, 90, 99, 98}

	res := EvaluateThreshold(closes, 1000, 4, 5, 30, true)

	if math.Abs(res.FinalCash-1090) > 1e-9 {
		t.Errorf("final cash = %v, want 1090", res.FinalCash)
	}
	if len(res.OpenLots) != 0 {
		t.Errorf("open lots = %v, want none", res.OpenLots)
	}
	if math.Abs(res.Profit-90) > 1e-9 {
		t.Errorf("profit = %v, want 90", res.Profit)
	}
	if res.LastAction != ActionHold {
		t.Errorf("last action = %q, want %q", res.LastAction, ActionHold)
	}
	if res.LastPrice != 98 {
		t.Errorf("last price = %v, want 98", res.LastPrice)
	}
	if len(res.EquityCurve) != len(closes) {
		t.Errorf("equity curve length = %d, want %d", len(res.EquityCurve), len(closes))
	}
}

func TestEvaluateThresholdMinimumOneShare(t *testing.T) {
	// A 0.5% dip floors to zero whole shares; the trader still buys one.
	closes := []float64{100, 100, 99.5}

	res := EvaluateThreshold(closes, 1000, 50, 0.3, 30, false)

	if len(res.OpenLots) != 1 || res.OpenLots[0].Shares != 1 {
		t.Fatalf("open lots = %v, want one single-share lot", res.OpenLots)
	}
	if res.OpenLots[0].BuyPrice != 99.5 {
		t.Errorf("lot price = %v, want 99.5", res.OpenLots[0].BuyPrice)
	}
	if res.LastAction != ActionBuy || res.LastAmount != 1 {
		t.Errorf("last action = %q x%d, want BUY x1", res.LastAction, res.LastAmount)
	}
	// Marked to market at the buy price the position is worth what it cost.
	if math.Abs(res.Profit) > 1e-9 {
		t.Errorf("profit = %v, want 0", res.Profit)
	}
}

func TestEvaluateThresholdFlatSeries(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}

	res := EvaluateThreshold(closes, 4000, 2, 1, 30, true)

	if res.FinalCash != 4000 || res.Profit != 0 {
		t.Errorf("flat series traded: cash %v, profit %v", res.FinalCash, res.Profit)
	}
	if len(res.OpenLots) != 0 {
		t.Errorf("flat series opened lots: %v", res.OpenLots)
	}
	if res.LastAction != ActionHold {
		t.Errorf("last action = %q, want %q", res.LastAction, ActionHold)
	}
}

func TestEvaluateThresholdSizesByDropDepth(t *testing.T) {
	// 20% drop buys one share per whole percentage point, cash permitting.
	closes := []float64{100, 100, 80}

	res := EvaluateThreshold(closes, 4000, 50, 5, 30, false)

	if res.LastAction != ActionBuy || res.LastAmount != 20 {
		t.Fatalf("last action = %q x%d, want BUY x20", res.LastAction, res.LastAmount)
	}
	if math.Abs(res.FinalCash-2400) > 1e-9 {
		t.Errorf("final cash = %v, want 2400", res.FinalCash)
	}
	if math.Abs(res.FinalValue-4000) > 1e-9 {
		t.Errorf("final value = %v, want 4000", res.FinalValue)
	}
}

func TestEvaluateThresholdCashCap(t *testing.T) {
	// Dip depth asks for 20 shares but the wallet only covers a few.
	closes := []float64{100, 100, 80}

	res := EvaluateThreshold(closes, 250, 50, 5, 30, false)

	if res.LastAction != ActionBuy || res.LastAmount != 3 {
		t.Fatalf("last action = %q x%d, want BUY x3", res.LastAction, res.LastAmount)
	}
	if math.Abs(res.FinalCash-10) > 1e-9 {
		t.Errorf("final cash = %v, want 10", res.FinalCash)
	}
}
