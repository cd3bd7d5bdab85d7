package engine

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func noisySeriesCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 12*math.Sin(float64(i)/9) + 0.03*float64(i)
	}
	return closes
}

func TestSearchReproducible(t *testing.T) {
	closes := noisySeriesCloses(400)
	series := syntheticSeries(closes)
	table := Precompute(closes)

	cfg := DefaultSearchConfig()
	cfg.Sims = 100

	a, err := Search(series, table, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Search(series, table, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("identical seed and config produced different rankings")
	}
}

func TestSearchSeedChangesOutcome(t *testing.T) {
	closes := noisySeriesCloses(400)
	series := syntheticSeries(closes)
	table := Precompute(closes)

	cfg := DefaultSearchConfig()
	cfg.Sims = 100

	a, err := Search(series, table, cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Seed = 7
	b, err := Search(series, table, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if reflect.DeepEqual(a, b) {
		t.Error("different seeds produced identical rankings")
	}
}

func TestSearchRetainsTopKSorted(t *testing.T) {
	closes := noisySeriesCloses(300)
	series := syntheticSeries(closes)
	table := Precompute(closes)

	cfg := DefaultSearchConfig()
	cfg.Sims = 50

	results, err := Search(series, table, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || len(results) > TopK {
		t.Fatalf("got %d results, want 1..%d", len(results), TopK)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not sorted descending by score at %d", i)
		}
	}
}

func TestSearchFewerSimsThanTopK(t *testing.T) {
	closes := noisySeriesCloses(300)
	series := syntheticSeries(closes)
	table := Precompute(closes)

	cfg := DefaultSearchConfig()
	cfg.Sims = 3

	results, err := Search(series, table, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestSearchEmptySeries(t *testing.T) {
	if _, err := Search(nil, Precompute(nil), DefaultSearchConfig()); err == nil {
		t.Fatal("empty series should error")
	}
}

func TestSampleStrategyRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := DefaultSearchConfig()

	for n := 0; n < 1000; n++ {
		s := sampleStrategy(rng, cfg)
		if err := s.Validate(); err != nil {
			t.Fatalf("draw %d invalid: %v", n, err)
		}
		if s.Slow < s.Fast+5 {
			t.Fatalf("draw %d: slow %d not at least fast %d + 5", n, s.Slow, s.Fast)
		}
		if s.RSIBuy < 20 || s.RSIBuy > 45 || s.RSISell < 55 || s.RSISell > 80 {
			t.Fatalf("draw %d: rsi thresholds %v/%v out of range", n, s.RSIBuy, s.RSISell)
		}
		if s.ZBuy < -2.5 || s.ZBuy > -0.5 || s.ZSell < -0.5 || s.ZSell > 1.5 {
			t.Fatalf("draw %d: z thresholds %v/%v out of range", n, s.ZBuy, s.ZSell)
		}
		if s.StopLoss < 0.03 || s.StopLoss > 0.15 || s.TakeProfit < 0.05 || s.TakeProfit > 0.30 {
			t.Fatalf("draw %d: exits %v/%v out of range", n, s.StopLoss, s.TakeProfit)
		}
	}
}
