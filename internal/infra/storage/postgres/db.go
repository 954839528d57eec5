package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/utof/debtds/internal/collect/metrics"
)

const (
	defaultMaxConns  = 10
	defaultIdleConns = 2
	connMaxLifetime  = time.Hour
	connMaxIdleTime  = 30 * time.Minute
	poolSampleEvery  = 15 * time.Second
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// poolLimits returns the open and idle connection limits, filling unset
// values with defaults. Idle never exceeds open.
func (c Config) poolLimits() (open, idle int) {
	open, idle = defaultMaxConns, defaultIdleConns
	if c.MaxConns > 0 {
		open = c.MaxConns
	}
	if c.MinConns > 0 {
		idle = c.MinConns
	}
	return open, min(idle, open)
}

// DB is the cache database handle.
type DB struct {
	*sqlx.DB
}

// NewDB opens the pool over pgx and checks the server answers.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	open, idle := cfg.poolLimits()
	db.SetMaxOpenConns(open)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

// poolUsage is the share of open connections in percent, or false when the
// pool has no limit.
func poolUsage(s sql.DBStats) (float64, bool) {
	if s.MaxOpenConnections <= 0 {
		return 0, false
	}
	return float64(s.OpenConnections) / float64(s.MaxOpenConnections) * 100, true
}

// StartMetricsCollector samples pool usage into the metrics gauge until ctx
// is done.
func (db *DB) StartMetricsCollector(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(poolSampleEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if usage, ok := poolUsage(db.Stats()); ok {
					metrics.DBConnectionPoolUsage.Set(usage)
				}
			}
		}
	}()
}
