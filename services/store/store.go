// Package store persists tuning outcomes in MySQL: the best threshold
// pair found per symbol, and an audit row per search run.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BestThreshold is the highest-profit threshold pair known for a symbol.
// One row per symbol; re-tuning upserts in place.
type BestThreshold struct {
	ID        uint   `gorm:"primarykey"`
	Symbol    string `gorm:"uniqueIndex;size:16"`
	SellPct   float64
	BuyPct    float64
	Profit    float64
	UpdatedAt time.Time
}

// SearchRun is one completed randomized search, kept for audit.
type SearchRun struct {
	ID        uint   `gorm:"primarykey"`
	JobID     string `gorm:"index;size:36"`
	Symbol    string `gorm:"index;size:16"`
	Sims      int
	Seed      int64
	BestScore float64
	BestCAGR  float64
	Trades    int
	CreatedAt time.Time
}

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&BestThreshold{}, &SearchRun{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveBestThreshold upserts the per-symbol best. An older, more
// profitable row is never overwritten by a worse result; callers decide
// what "best" means before writing.
func (s *Store) SaveBestThreshold(symbol string, sellPct, buyPct, profit float64) error {
	row := BestThreshold{
		Symbol:  symbol,
		SellPct: sellPct,
		BuyPct:  buyPct,
		Profit:  profit,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"sell_pct", "buy_pct", "profit", "updated_at"}),
	}).Create(&row).Error
}

// GetBestThreshold returns the stored best for a symbol, or gorm's
// record-not-found error when the symbol was never tuned.
func (s *Store) GetBestThreshold(symbol string) (*BestThreshold, error) {
	var row BestThreshold
	if err := s.db.Where("symbol = ?", symbol).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) LogSearchRun(run *SearchRun) error {
	return s.db.Create(run).Error
}

// RecentRuns lists the latest search runs for a symbol, newest first.
func (s *Store) RecentRuns(symbol string, limit int) ([]SearchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []SearchRun
	err := s.db.Where("symbol = ?", symbol).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
