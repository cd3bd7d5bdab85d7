package engine

import (
	"fmt"
	"math/rand"
)

// Strategy is one immutable parameter bundle for the indicator-driven
// evaluator. Instances come out of the sampler and are never mutated.
type Strategy struct {
	Fast int // fast SMA window
	Slow int // slow SMA window, sampler guarantees Slow >= Fast+5

	RSIWindow int
	RSIBuy    float64
	RSISell   float64

	ZWindow int
	ZBuy    float64
	ZSell   float64

	StopLoss   float64 // fraction below entry
	TakeProfit float64 // fraction above entry

	MinHold  int
	MaxHold  int
	Cooldown int
	MaxIdle  int

	Fee          float64 // per-side fee fraction
	DDWeight     float64 // drawdown penalty weight in the score
	TradePenalty float64 // per-trade/year penalty weight
}

// Validate rejects parameter bundles the evaluator must never simulate.
func (s Strategy) Validate() error {
	if s.Fast >= s.Slow {
		return fmt.Errorf("fast window %d must be below slow window %d", s.Fast, s.Slow)
	}
	if s.Fast < SMAMinWindow || s.Slow > SMAMaxWindow {
		return fmt.Errorf("sma windows %d/%d outside [%d,%d]", s.Fast, s.Slow, SMAMinWindow, SMAMaxWindow)
	}
	if s.RSIWindow < RSIMinWindow || s.RSIWindow > RSIMaxWindow {
		return fmt.Errorf("rsi window %d outside [%d,%d]", s.RSIWindow, RSIMinWindow, RSIMaxWindow)
	}
	if s.ZWindow < ZRetMinWindow || s.ZWindow > ZRetMaxWindow {
		return fmt.Errorf("z-score window %d outside [%d,%d]", s.ZWindow, ZRetMinWindow, ZRetMaxWindow)
	}
	return nil
}

// SearchConfig carries the knobs shared by every strategy in one
// randomized search run.
type SearchConfig struct {
	Sims int
	Seed int64

	Fee          float64
	DDWeight     float64
	TradePenalty float64

	MaxIdle  int
	MinHold  int
	MaxHold  int
	Cooldown int
}

// DefaultSearchConfig mirrors the tuning the strategy runner ships with.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Sims:         1000,
		Seed:         42,
		Fee:          0.001, // 0.1% per side
		DDWeight:     0.75,
		TradePenalty: 0.002,
		MaxIdle:      15,
		MinHold:      2,
		MaxHold:      60,
		Cooldown:     1,
	}
}

// sampleStrategy draws one parameter bundle. Draw order is fixed; it is
// part of the reproducibility contract for a seeded search.
func sampleStrategy(rng *rand.Rand, cfg SearchConfig) Strategy {
	fast := intBetween(rng, 5, 50)
	slow := intBetween(rng, fast+5, SMAMaxWindow)

	rsiW := intBetween(rng, 7, 30)
	rsiBuy := floatBetween(rng, 20, 45)
	rsiSell := floatBetween(rng, 55, 80)

	zW := intBetween(rng, ZRetMinWindow, ZRetMaxWindow)
	zBuy := floatBetween(rng, -2.5, -0.5)
	zSell := floatBetween(rng, -0.5, 1.5)

	stopLoss := floatBetween(rng, 0.03, 0.15)
	takeProfit := floatBetween(rng, 0.05, 0.30)

	return Strategy{
		Fast: fast, Slow: slow,
		RSIWindow: rsiW, RSIBuy: rsiBuy, RSISell: rsiSell,
		ZWindow: zW, ZBuy: zBuy, ZSell: zSell,
		StopLoss: stopLoss, TakeProfit: takeProfit,
		MinHold: cfg.MinHold, MaxHold: cfg.MaxHold,
		Cooldown: cfg.Cooldown, MaxIdle: cfg.MaxIdle,
		Fee: cfg.Fee, DDWeight: cfg.DDWeight, TradePenalty: cfg.TradePenalty,
	}
}

// intBetween draws uniformly from [lo, hi] inclusive.
func intBetween(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func floatBetween(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
