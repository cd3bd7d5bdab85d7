package engine

import (
	"math"
	"sort"
)

// ThresholdCombo is one grid cell: a threshold pair and the profit it
// realized over the series.
type ThresholdCombo struct {
	SellPct float64
	BuyPct  float64
	Profit  float64
}

// GridConfig bounds the exhaustive threshold search.
type GridConfig struct {
	Min  float64
	Max  float64
	Step float64

	StartCapital float64
	Lookback     int
}

// DefaultGridConfig covers 0.1%..20.0% on both axes in 0.1 steps, the
// dense 200x200 grid the threshold trader is tuned over.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Min:          0.1,
		Max:          20.0,
		Step:         0.1,
		StartCapital: 4000,
		Lookback:     30,
	}
}

// GridResult carries the single best combination plus the full ranked
// grid for inspection.
type GridResult struct {
	Best       ThresholdCombo
	BestDetail ThresholdResult
	Combos     []ThresholdCombo
}

// GridSearch evaluates every threshold pair on the grid. The running
// best is replaced only by a strictly greater profit, so the first
// combination seen wins ties; the returned list is sorted descending by
// profit with enumeration order preserved among equals. onProgress, when
// non-nil, receives whole percentages as the grid fills; it is a
// reporting side effect and never influences the result.
func GridSearch(closes []float64, cfg GridConfig, onProgress func(percent int)) GridResult {
	values := gridValues(cfg)
	total := len(values) * len(values)

	combos := make([]ThresholdCombo, 0, total)
	best := ThresholdCombo{Profit: math.Inf(-1)}
	var bestDetail ThresholdResult

	count := 0
	lastShown := -1
	for _, sellPct := range values {
		for _, buyPct := range values {
			res := EvaluateThreshold(closes, cfg.StartCapital, sellPct, buyPct, cfg.Lookback, false)
			combos = append(combos, ThresholdCombo{SellPct: sellPct, BuyPct: buyPct, Profit: res.Profit})

			if res.Profit > best.Profit {
				best = ThresholdCombo{SellPct: sellPct, BuyPct: buyPct, Profit: res.Profit}
				bestDetail = res
			}

			count++
			if onProgress != nil {
				if pct := count * 100 / total; pct != lastShown {
					lastShown = pct
					onProgress(pct)
				}
			}
		}
	}

	sort.SliceStable(combos, func(i, j int) bool { return combos[i].Profit > combos[j].Profit })

	return GridResult{Best: best, BestDetail: bestDetail, Combos: combos}
}

// gridValues enumerates the axis, rounding each step to one decimal so
// float accumulation never drifts a cell off the grid.
func gridValues(cfg GridConfig) []float64 {
	var out []float64
	for v := cfg.Min; v <= cfg.Max+cfg.Step/2; v += cfg.Step {
		out = append(out, math.Round(v*10)/10)
	}
	return out
}
