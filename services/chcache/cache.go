// Package chcache persists daily close series in ClickHouse so repeated
// searches over the same symbol skip the upstream API.
package chcache

import (
	"context"
	"fmt"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/MaxwellSullivan/StockBot/services/prices"
)

type Options struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

// Cache is a symbol-keyed close-price store. Writes are idempotent: the
// table is a ReplacingMergeTree keyed on (symbol, date) and inserts run
// with dedup enabled, so re-ingesting a range never duplicates rows.
type Cache struct {
	conn  clickhouse.Conn
	db    string
	table string
	log   *zap.Logger
}

func Open(ctx context.Context, opts Options, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Table == "" {
		opts.Table = "daily_closes"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	c := &Cache{conn: conn, db: opts.Database, table: opts.Table, log: log}
	if err := c.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error { return c.conn.Close() }

func (c *Cache) ensureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", c.db)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			symbol LowCardinality(String),
			date Date,
			close Float64,
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, date)
		SETTINGS index_granularity = 8192
	`, c.db, c.table)
	return c.conn.Exec(ctx, ddl)
}

// Store writes a series for one symbol. All rows in one call share a
// version; ReplacingMergeTree keeps the latest version per (symbol, date).
func (c *Cache) Store(ctx context.Context, symbol string, series prices.Series) error {
	if len(series) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s.%s SETTINGS insert_deduplicate=1", c.db, c.table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	now := time.Now().UTC()
	ver := uint64(now.UnixNano())
	for _, p := range series {
		if err := batch.Append(symbol, p.Date, p.Close, now, ver); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	c.log.Info("cached closes",
		zap.String("symbol", symbol),
		zap.Int("rows", len(series)))
	return nil
}

// Load reads the cached series for one symbol between start and end
// inclusive, ascending. FINAL collapses replaced versions at read time.
func (c *Cache) Load(ctx context.Context, symbol string, start, end time.Time) (prices.Series, error) {
	query := fmt.Sprintf(`
		SELECT date, close
		FROM %s.%s FINAL
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date
	`, c.db, c.table)

	rows, err := c.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query closes: %w", err)
	}
	defer rows.Close()

	var out prices.Series
	for rows.Next() {
		var (
			d time.Time
			v float64
		)
		if err := rows.Scan(&d, &v); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, prices.Point{Date: d, Close: v})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Coverage reports the stored date span and row count for a symbol.
// Zero rows means the symbol has never been ingested.
func (c *Cache) Coverage(ctx context.Context, symbol string) (first, last time.Time, count uint64, err error) {
	query := fmt.Sprintf(`
		SELECT min(date), max(date), count()
		FROM %s.%s FINAL
		WHERE symbol = ?
	`, c.db, c.table)

	row := c.conn.QueryRow(ctx, query, symbol)
	if err = row.Scan(&first, &last, &count); err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("scan coverage: %w", err)
	}
	return first, last, count, nil
}
