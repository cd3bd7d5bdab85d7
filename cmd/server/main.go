// Package main serves the strategy search and threshold tuning engine
// over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MaxwellSullivan/StockBot/services/config"
	"github.com/MaxwellSullivan/StockBot/services/engine"
	"github.com/MaxwellSullivan/StockBot/services/prices"
	"github.com/MaxwellSullivan/StockBot/services/store"
)

type searchService struct {
	cfg    *config.Config
	loader *prices.Loader
	store  *store.Store // nil when no DATABASE_URL is configured
	logger *zap.Logger
}

type searchRequest struct {
	Symbols []string `json:"symbols" binding:"required"`
	Sims    int      `json:"sims"`
	Seed    int64    `json:"seed"`
}

type symbolResult struct {
	Symbol string        `json:"symbol"`
	Score  float64       `json:"score"`
	CAGR   float64       `json:"cagr"`
	MaxDD  float64       `json:"max_drawdown"`
	Trades int           `json:"trades"`
	Best   engineSummary `json:"best_strategy"`
}

type engineSummary struct {
	Fast       int     `json:"fast"`
	Slow       int     `json:"slow"`
	RSIWindow  int     `json:"rsi_window"`
	RSIBuy     float64 `json:"rsi_buy"`
	RSISell    float64 `json:"rsi_sell"`
	ZWindow    int     `json:"z_window"`
	ZBuy       float64 `json:"z_buy"`
	ZSell      float64 `json:"z_sell"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

func summarize(s engine.Strategy) engineSummary {
	return engineSummary{
		Fast: s.Fast, Slow: s.Slow,
		RSIWindow: s.RSIWindow, RSIBuy: s.RSIBuy, RSISell: s.RSISell,
		ZWindow: s.ZWindow, ZBuy: s.ZBuy, ZSell: s.ZSell,
		StopLoss: s.StopLoss, TakeProfit: s.TakeProfit,
	}
}

func (s *searchService) loadSeries(symbol string) (prices.Series, error) {
	path := prices.FindCSV(s.cfg.DataDir, symbol)
	if path == "" {
		return nil, fmt.Errorf("no data file for %s in %s", symbol, s.cfg.DataDir)
	}
	return s.loader.LoadFile(path)
}

func (s *searchService) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no symbols"})
		return
	}

	jobID := uuid.New().String()
	started := time.Now()

	searchCfg := engine.DefaultSearchConfig()
	if req.Sims > 0 {
		searchCfg.Sims = req.Sims
	}
	if req.Seed != 0 {
		searchCfg.Seed = req.Seed
	}

	s.logger.Info("starting search job",
		zap.String("job_id", jobID),
		zap.Strings("symbols", req.Symbols),
		zap.Int("sims", searchCfg.Sims),
		zap.Int64("seed", searchCfg.Seed),
	)

	numWorkers := runtime.NumCPU()
	if s.cfg.MaxWorkers > 0 {
		numWorkers = s.cfg.MaxWorkers
	}
	if numWorkers > len(req.Symbols) {
		numWorkers = len(req.Symbols)
	}

	symbolChan := make(chan string, len(req.Symbols))
	resultChan := make(chan symbolResult, len(req.Symbols))
	errorChan := make(chan error, len(req.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for symbol := range symbolChan {
				res, err := s.searchSymbol(symbol, searchCfg)
				if err != nil {
					errorChan <- fmt.Errorf("%s: %w", symbol, err)
					continue
				}
				resultChan <- *res
			}
		}(i)
	}

	for _, symbol := range req.Symbols {
		symbolChan <- symbol
	}
	close(symbolChan)

	wg.Wait()
	close(resultChan)
	close(errorChan)

	var results []symbolResult
	for r := range resultChan {
		results = append(results, r)
	}
	var failed []string
	for err := range errorChan {
		failed = append(failed, err.Error())
	}

	if s.store != nil {
		for _, r := range results {
			run := &store.SearchRun{
				JobID:     jobID,
				Symbol:    r.Symbol,
				Sims:      searchCfg.Sims,
				Seed:      searchCfg.Seed,
				BestScore: r.Score,
				BestCAGR:  r.CAGR,
				Trades:    r.Trades,
			}
			if err := s.store.LogSearchRun(run); err != nil {
				s.logger.Warn("failed to log search run", zap.String("symbol", r.Symbol), zap.Error(err))
			}
		}
	}

	s.logger.Info("search job finished",
		zap.String("job_id", jobID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("succeeded", len(results)),
		zap.Int("failed", len(failed)),
	)

	c.JSON(http.StatusOK, gin.H{
		"job_id":  jobID,
		"results": results,
		"errors":  failed,
	})
}

func (s *searchService) searchSymbol(symbol string, cfg engine.SearchConfig) (*symbolResult, error) {
	series, err := s.loadSeries(symbol)
	if err != nil {
		return nil, err
	}

	table := engine.Precompute(series.Closes())
	ranked, err := engine.Search(series, table, cfg)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("search produced no results")
	}

	best := ranked[0]
	return &symbolResult{
		Symbol: symbol,
		Score:  best.Score,
		CAGR:   best.CAGR,
		MaxDD:  best.MaxDrawdown,
		Trades: len(best.Trades),
		Best:   summarize(best.Strategy),
	}, nil
}

type thresholdRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (s *searchService) handleTuneThresholds(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := s.loadSeries(req.Symbol)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	started := time.Now()
	res := engine.GridSearch(series.Closes(), engine.DefaultGridConfig(), nil)
	s.logger.Info("grid search finished",
		zap.String("symbol", req.Symbol),
		zap.Duration("elapsed", time.Since(started)),
		zap.Float64("best_profit", res.Best.Profit),
	)

	if s.store != nil {
		if err := s.store.SaveBestThreshold(req.Symbol, res.Best.SellPct, res.Best.BuyPct, res.Best.Profit); err != nil {
			s.logger.Warn("failed to persist best threshold", zap.String("symbol", req.Symbol), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":      req.Symbol,
		"sell_pct":    res.Best.SellPct,
		"buy_pct":     res.Best.BuyPct,
		"profit":      res.Best.Profit,
		"last_action": res.BestDetail.LastAction,
		"last_price":  res.BestDetail.LastPrice,
	})
}

func (s *searchService) handleGetThresholds(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no database configured"})
		return
	}

	symbol := c.Param("symbol")
	row, err := s.store.GetBestThreshold(symbol)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "symbol never tuned"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":     row.Symbol,
		"sell_pct":   row.SellPct,
		"buy_pct":    row.BuyPct,
		"profit":     row.Profit,
		"updated_at": row.UpdatedAt,
	})
}

func (s *searchService) setupRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/search", s.handleSearch)
		api.POST("/thresholds", s.handleTuneThresholds)
		api.GET("/thresholds/:symbol", s.handleGetThresholds)
	}
}

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting search service",
		zap.String("environment", cfg.Environment),
		zap.String("data_dir", cfg.DataDir),
	)

	svc := &searchService{
		cfg:    cfg,
		loader: prices.NewLoader(logger),
		logger: logger,
	}

	if cfg.DatabaseURL != "" {
		st, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to open store", zap.Error(err))
		}
		svc.store = st
	} else {
		logger.Warn("no DATABASE_URL set, thresholds will not persist")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	svc.setupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
