package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lberndt/galaxytrade/internal/domain"
)

func appendTrade(t *testing.T, db *DB, s *TradeStore, price, qty int64, at time.Time) {
	t.Helper()
	inTx(t, db, func(tx *gorm.DB) error {
		return s.Append(tx, &domain.Trade{
			TradeID:    uuid.New().String(),
			System:     "sol",
			Resource:   "aluminium",
			Buyer:      "alice",
			Seller:     "bob",
			Price:      price,
			Quantity:   qty,
			ExecutedAt: at,
		})
	})
}

func TestTradeStore_RecentNewestFirst(t *testing.T) {
	db := openTestDB(t)
	s := NewTradeStore()
	t0 := time.Now()

	appendTrade(t, db, s, 10, 1, t0)
	appendTrade(t, db, s, 11, 2, t0.Add(time.Second))
	appendTrade(t, db, s, 12, 3, t0.Add(2*time.Second))

	inTx(t, db, func(tx *gorm.DB) error {
		trades, err := s.Recent(tx, "sol", "aluminium", 2)
		if err != nil {
			return err
		}
		if len(trades) != 2 {
			t.Fatalf("expected 2 trades, got %d", len(trades))
		}
		if trades[0].Price != 12 || trades[1].Price != 11 {
			t.Fatalf("expected newest first, got %+v", trades)
		}
		return nil
	})
}

func TestTradeStore_RecentScopedToMarket(t *testing.T) {
	db := openTestDB(t)
	s := NewTradeStore()

	appendTrade(t, db, s, 10, 1, time.Now())
	inTx(t, db, func(tx *gorm.DB) error {
		return s.Append(tx, &domain.Trade{
			TradeID: uuid.New().String(), System: "sirius", Resource: "fuel",
			Buyer: "x", Seller: "y", Price: 3, Quantity: 1, ExecutedAt: time.Now(),
		})
	})

	inTx(t, db, func(tx *gorm.DB) error {
		trades, err := s.Recent(tx, "sol", "aluminium", 10)
		if err != nil {
			return err
		}
		if len(trades) != 1 || trades[0].Price != 10 {
			t.Fatalf("expected only the sol/aluminium trade, got %+v", trades)
		}
		return nil
	})
}
