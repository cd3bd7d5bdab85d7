// Package main ingests daily closes from Alpha Vantage into the
// ClickHouse cache, optionally mirroring each symbol to a local CSV the
// batch runner can consume.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MaxwellSullivan/StockBot/services/alphavantage"
	"github.com/MaxwellSullivan/StockBot/services/chcache"
	"github.com/MaxwellSullivan/StockBot/services/config"
	"github.com/MaxwellSullivan/StockBot/services/prices"
)

func main() {
	symbols := flag.String("symbols", "", "Comma-separated ticker symbols (required)")
	start := flag.String("start", "2015-01-01", "Start date (YYYY-MM-DD)")
	end := flag.String("end", time.Now().Format("2006-01-02"), "End date (YYYY-MM-DD)")
	csvMirror := flag.Bool("csv", true, "Also write <DATA_DIR>/<TICKER>.csv")
	skipCH := flag.Bool("no-clickhouse", false, "Skip the ClickHouse cache, CSV only")
	flag.Parse()

	if *symbols == "" {
		fmt.Fprintln(os.Stderr, "usage: fetcher -symbols AAPL,MSFT [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.AlphaVantageKey == "" {
		logger.Fatal("ALPHAVANTAGE_API_KEY not set")
	}

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		logger.Fatal("bad start date", zap.Error(err))
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		logger.Fatal("bad end date", zap.Error(err))
	}

	ctx := context.Background()

	var cache *chcache.Cache
	if !*skipCH {
		cache, err = chcache.Open(ctx, chcache.Options{
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

	if *csvMirror {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			logger.Fatal("cannot create data directory", zap.Error(err))
		}
	}

	client := alphavantage.NewClient(cfg.AlphaVantageKey, logger)

	failures := 0
	for _, raw := range strings.Split(*symbols, ",") {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}

		series, err := client.DailyCloses(symbol, startDate, endDate)
		if err != nil {
			logger.Error("fetch failed", zap.String("symbol", symbol), zap.Error(err))
			failures++
			continue
		}
		logger.Info("fetched closes",
			zap.String("symbol", symbol),
			zap.Int("rows", series.Len()),
			zap.Time("first", series.First().Date),
			zap.Time("last", series.Last().Date),
		)

		if cache != nil {
			if err := cache.Store(ctx, symbol, series); err != nil {
				logger.Error("cache store failed", zap.String("symbol", symbol), zap.Error(err))
				failures++
				continue
			}
		}

		if *csvMirror {
			path := filepath.Join(cfg.DataDir, symbol+".csv")
			if err := writeCSV(path, series); err != nil {
				logger.Error("csv mirror failed", zap.String("symbol", symbol), zap.Error(err))
				failures++
			}
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func writeCSV(path string, series prices.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Date", "Close"}); err != nil {
		return err
	}
	for _, p := range series {
		row := []string{
			p.Date.Format("01/02/2006"),
			strconv.FormatFloat(p.Close, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
