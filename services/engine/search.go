package engine

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/MaxwellSullivan/StockBot/services/prices"
)

// TopK is the number of results a randomized search retains.
const TopK = 10

// Search samples cfg.Sims strategies from the parameter space and
// returns the top-K by score, ranked descending. The bounded retention
// keeps at most K full results (each carrying a trade list) in memory no
// matter how many simulations run.
//
// Reproducible: identical (series, cfg) input always yields the same
// ranked output, because sampling order is fixed and evaluation is pure.
func Search(series prices.Series, table *IndicatorTable, cfg SearchConfig) ([]*Result, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("empty price series")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	sims := cfg.Sims
	if sims < 1 {
		sims = 1
	}

	var best []*Result
	for n := 0; n < sims; n++ {
		s := sampleStrategy(rng, cfg)
		r, err := Evaluate(series, table, s)
		if err != nil {
			return nil, fmt.Errorf("simulation %d: %w", n, err)
		}

		if len(best) < TopK {
			best = append(best, r)
			sort.SliceStable(best, func(i, j int) bool { return best[i].Score > best[j].Score })
			continue
		}
		if r.Score > best[len(best)-1].Score {
			best[len(best)-1] = r
			sort.SliceStable(best, func(i, j int) bool { return best[i].Score > best[j].Score })
		}
	}

	return best, nil
}
