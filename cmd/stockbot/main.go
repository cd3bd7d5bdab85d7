// Package main runs strategy discovery over local CSV price exports:
// a randomized indicator search per ticker, optionally followed by the
// exhaustive threshold grid.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/MaxwellSullivan/StockBot/services/chcache"
	"github.com/MaxwellSullivan/StockBot/services/config"
	"github.com/MaxwellSullivan/StockBot/services/engine"
	"github.com/MaxwellSullivan/StockBot/services/export"
	"github.com/MaxwellSullivan/StockBot/services/prices"
	"github.com/MaxwellSullivan/StockBot/services/store"
)

func main() {
	defaults := engine.DefaultSearchConfig()
	gridDefaults := engine.DefaultGridConfig()

	tickers := flag.String("tickers", "", "Comma-separated ticker symbols (required)")
	dataDir := flag.String("data", "", "Directory with <TICKER>.csv files (default: DATA_DIR env)")
	outDir := flag.String("out", "", "Output directory (default: OUT_DIR env)")
	sims := flag.Int("sims", defaults.Sims, "Simulations per ticker")
	seed := flag.Int64("seed", defaults.Seed, "Random seed")
	fee := flag.Float64("fee", defaults.Fee, "Per-side fee fraction")
	ddWeight := flag.Float64("dd-weight", defaults.DDWeight, "Drawdown penalty weight")
	tradePenalty := flag.Float64("trade-penalty", defaults.TradePenalty, "Per-trade/year penalty")
	maxIdle := flag.Int("max-idle", defaults.MaxIdle, "Days flat before a forced entry")
	minHold := flag.Int("min-hold", defaults.MinHold, "Minimum hold days")
	maxHold := flag.Int("max-hold", defaults.MaxHold, "Maximum hold days")
	cooldown := flag.Int("cooldown", defaults.Cooldown, "Days to wait after an exit")
	runGrid := flag.Bool("grid", false, "Also run the threshold grid search")
	capital := flag.Float64("capital", gridDefaults.StartCapital, "Starting capital for the grid")
	lookback := flag.Int("lookback", gridDefaults.Lookback, "Dip lookback days for the grid")
	xlsx := flag.Bool("xlsx", false, "Also write an Excel report per ticker")
	arrowOut := flag.Bool("arrow", false, "Also write the labeled series as Arrow IPC")
	fromCH := flag.Bool("clickhouse", false, "Load prices from the ClickHouse cache instead of CSV files")
	flag.Parse()

	if *tickers == "" {
		fmt.Fprintln(os.Stderr, "usage: stockbot -tickers AAPL,MSFT [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.Load()
	if *dataDir == "" {
		*dataDir = cfg.DataDir
	}
	if *outDir == "" {
		*outDir = cfg.OutDir
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal("cannot create output directory", zap.Error(err))
	}

	var st *store.Store
	if *runGrid && cfg.DatabaseURL != "" {
		st, err = store.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to open store", zap.Error(err))
		}
	}

	searchCfg := engine.SearchConfig{
		Sims: *sims, Seed: *seed,
		Fee: *fee, DDWeight: *ddWeight, TradePenalty: *tradePenalty,
		MaxIdle: *maxIdle, MinHold: *minHold, MaxHold: *maxHold, Cooldown: *cooldown,
	}
	gridCfg := engine.DefaultGridConfig()
	gridCfg.StartCapital = *capital
	gridCfg.Lookback = *lookback

	loader := prices.NewLoader(logger)

	var cache *chcache.Cache
	if *fromCH {
		cache, err = chcache.Open(context.Background(), chcache.Options{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			logger.Fatal("clickhouse unavailable", zap.Error(err))
		}
		defer cache.Close()
	}

	failures := 0
	for _, raw := range strings.Split(*tickers, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}
		if err := runTicker(logger, loader, cache, st, ticker, *dataDir, *outDir, searchCfg, gridCfg, *runGrid, *xlsx, *arrowOut); err != nil {
			logger.Error("ticker failed", zap.String("ticker", ticker), zap.Error(err))
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func runTicker(
	logger *zap.Logger,
	loader *prices.Loader,
	cache *chcache.Cache,
	st *store.Store,
	ticker, dataDir, outDir string,
	searchCfg engine.SearchConfig,
	gridCfg engine.GridConfig,
	runGrid, xlsx, arrowOut bool,
) error {
	series, err := loadSeries(loader, cache, ticker, dataDir)
	if err != nil {
		return err
	}
	logger.Info("loaded series",
		zap.String("ticker", ticker),
		zap.Int("rows", series.Len()),
		zap.Time("first", series.First().Date),
		zap.Time("last", series.Last().Date),
	)

	table := engine.Precompute(series.Closes())
	ranked, err := engine.Search(series, table, searchCfg)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	printRanking(ticker, ranked)

	summaryPath := filepath.Join(outDir, export.TimestampedName("summary", ticker, "csv"))
	if err := export.WriteSummaryCSV(summaryPath, ranked); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	best := ranked[0]
	tradesPath := filepath.Join(outDir, export.TimestampedName("trades", ticker, "csv"))
	if err := export.WriteTradesCSV(tradesPath, best.Trades); err != nil {
		return fmt.Errorf("write trades: %w", err)
	}

	labeled := engine.Label(series, best.Trades)
	labeledPath := filepath.Join(outDir, export.TimestampedName("labeled", ticker, "csv"))
	if err := export.WriteLabeledCSV(labeledPath, labeled); err != nil {
		return fmt.Errorf("write labeled series: %w", err)
	}

	if xlsx {
		xlsxPath := filepath.Join(outDir, export.TimestampedName("report", ticker, "xlsx"))
		if err := export.WriteReportXLSX(xlsxPath, ticker, ranked); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if arrowOut {
		payload, err := export.LabeledToArrow(ticker, labeled)
		if err != nil {
			return fmt.Errorf("arrow convert: %w", err)
		}
		arrowPath := filepath.Join(outDir, export.TimestampedName("labeled", ticker, "arrow"))
		if err := os.WriteFile(arrowPath, payload, 0o644); err != nil {
			return fmt.Errorf("write arrow: %w", err)
		}
	}

	if runGrid {
		fmt.Printf("\n%s threshold grid (%.1f..%.1f step %.1f)\n", ticker, gridCfg.Min, gridCfg.Max, gridCfg.Step)
		res := engine.GridSearch(series.Closes(), gridCfg, func(pct int) {
			if pct%10 == 0 {
				fmt.Printf("  %d%%\n", pct)
			}
		})
		fmt.Printf("  best: sell %.1f%% buy %.1f%% profit %.2f (last action %s @ %.2f)\n",
			res.Best.SellPct, res.Best.BuyPct, res.Best.Profit,
			res.BestDetail.LastAction, res.BestDetail.LastPrice)

		gridPath := filepath.Join(outDir, export.TimestampedName("grid", ticker, "csv"))
		if err := export.WriteGridCSV(gridPath, res.Combos, 100); err != nil {
			return fmt.Errorf("write grid: %w", err)
		}

		if st != nil {
			if err := st.SaveBestThreshold(ticker, res.Best.SellPct, res.Best.BuyPct, res.Best.Profit); err != nil {
				logger.Warn("failed to persist best threshold", zap.String("ticker", ticker), zap.Error(err))
			}
		}
	}

	return nil
}

func loadSeries(loader *prices.Loader, cache *chcache.Cache, ticker, dataDir string) (prices.Series, error) {
	if cache != nil {
		ctx := context.Background()
		first, last, count, err := cache.Coverage(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("coverage %s: %w", ticker, err)
		}
		if count == 0 {
			return nil, fmt.Errorf("%s not in the clickhouse cache, run the fetcher first", ticker)
		}
		series, err := cache.Load(ctx, ticker, first, last)
		if err != nil {
			return nil, fmt.Errorf("cache load %s: %w", ticker, err)
		}
		return series, nil
	}

	path := prices.FindCSV(dataDir, ticker)
	if path == "" {
		return nil, fmt.Errorf("no CSV for %s in %s", ticker, dataDir)
	}
	series, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return series, nil
}

func printRanking(ticker string, ranked []*engine.Result) {
	fmt.Printf("\n%s top strategies\n", ticker)
	fmt.Printf("%4s %10s %10s %10s %8s %6s %6s %5s\n",
		"rank", "score", "cagr", "maxdd", "tpy", "fast", "slow", "rsi")
	for i, r := range ranked {
		s := r.Strategy
		fmt.Printf("%4d %10.4f %10.4f %10.4f %8.2f %6d %6d %5d\n",
			i+1, r.Score, r.CAGR, r.MaxDrawdown, r.TradesPerYear, s.Fast, s.Slow, s.RSIWindow)
	}
}
