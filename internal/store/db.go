// Package store persists the market state: account balances, resting
// orders, and the append-only trade history. Every mutating operation runs
// inside a single transaction; the book is re-derived from storage on every
// call rather than cached in memory.
package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Balance is one (account, good) row. Quantity is stored as an exact
// arbitrary-precision decimal holding integer values, so currency amounts
// never pass through floating point. Rows reaching zero are deleted, never
// retained.
type Balance struct {
	AccountID string          `gorm:"primaryKey;size:128"`
	GoodID    string          `gorm:"primaryKey;size:64"`
	Quantity  decimal.Decimal `gorm:"type:numeric;not null"`
}

// Order is a resting order row. The composite primary key is the natural
// key (system, resource, owner, side, price): one resting order per owner,
// side, and price level on a market.
type Order struct {
	System    string    `gorm:"primaryKey;size:64"`
	Resource  string    `gorm:"primaryKey;size:64"`
	Owner     string    `gorm:"primaryKey;size:128"`
	Side      string    `gorm:"primaryKey;size:4"`
	Price     int64     `gorm:"primaryKey"`
	Quantity  int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// Trade is an executed-fill row, append-only, indexed for the
// recent-trades query on (system, resource, executed_at).
type Trade struct {
	ID         string    `gorm:"primaryKey;size:36"`
	System     string    `gorm:"size:64;index:idx_trades_market,priority:1"`
	Resource   string    `gorm:"size:64;index:idx_trades_market,priority:2"`
	Buyer      string    `gorm:"size:128"`
	Seller     string    `gorm:"size:128"`
	Price      int64     `gorm:"not null"`
	Quantity   int64     `gorm:"not null"`
	ExecutedAt time.Time `gorm:"index:idx_trades_market,priority:3"`
}

// DB wraps the gorm handle. Use Open to create one.
type DB struct {
	Gorm *gorm.DB
}

// Open connects to the SQLite database at path (":memory:" works for
// tests), applies migrations, and bounds lock waits so that nothing blocks
// indefinitely.
func Open(path string) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	// SQLite allows a single writer; funneling through one connection turns
	// writer contention into queueing instead of SQLITE_BUSY errors.
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	if err := gdb.AutoMigrate(&Balance{}, &Order{}, &Trade{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{Gorm: gdb}, nil
}

// Transaction runs fn inside a database transaction. Any error rolls the
// whole transaction back, so no partial mutation is ever observable.
func (d *DB) Transaction(fn func(tx *gorm.DB) error) error {
	return d.Gorm.Transaction(fn)
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
