package store

import (
	"gorm.io/gorm"

	"github.com/lberndt/galaxytrade/internal/domain"
)

// TradeStore appends to and reads the trade history. Trades are immutable:
// there is no update or delete path.
type TradeStore struct{}

// NewTradeStore creates a TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{}
}

// Append records one executed fill.
func (s *TradeStore) Append(tx *gorm.DB, t *domain.Trade) error {
	row := Trade{
		ID:         t.TradeID,
		System:     t.System,
		Resource:   t.Resource,
		Buyer:      t.Buyer,
		Seller:     t.Seller,
		Price:      t.Price,
		Quantity:   t.Quantity,
		ExecutedAt: t.ExecutedAt,
	}
	return tx.Create(&row).Error
}

// Recent returns up to limit trades on a market, newest first.
func (s *TradeStore) Recent(tx *gorm.DB, system, resource string, limit int) ([]domain.Trade, error) {
	var rows []Trade
	err := tx.Where("system = ? AND resource = ?", system, resource).
		Order("executed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Trade, len(rows))
	for i, r := range rows {
		out[i] = domain.Trade{
			TradeID:    r.ID,
			System:     r.System,
			Resource:   r.Resource,
			Buyer:      r.Buyer,
			Seller:     r.Seller,
			Price:      r.Price,
			Quantity:   r.Quantity,
			ExecutedAt: r.ExecutedAt,
		}
	}
	return out, nil
}
