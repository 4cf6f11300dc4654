package store

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceStore reads and writes (account, good) balance rows. All methods
// operate on the caller's transaction handle; the ledger is the only
// writer.
type BalanceStore struct{}

// NewBalanceStore creates a BalanceStore.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{}
}

// Get returns the quantity held by (account, good), zero when no row
// exists. Absent rows and zero rows are indistinguishable by design.
func (s *BalanceStore) Get(tx *gorm.DB, account, good string) (decimal.Decimal, error) {
	var row Balance
	err := tx.Where("account_id = ? AND good_id = ?", account, good).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return row.Quantity, nil
}

// GetInt is Get truncated to int64 for callers doing integer bookkeeping.
func (s *BalanceStore) GetInt(tx *gorm.DB, account, good string) (int64, error) {
	q, err := s.Get(tx, account, good)
	if err != nil {
		return 0, err
	}
	return q.IntPart(), nil
}

// Put sets the quantity of (account, good). A zero quantity deletes the
// row instead of storing it.
func (s *BalanceStore) Put(tx *gorm.DB, account, good string, quantity decimal.Decimal) error {
	if quantity.IsZero() {
		return tx.Where("account_id = ? AND good_id = ?", account, good).
			Delete(&Balance{}).Error
	}
	row := Balance{AccountID: account, GoodID: good, Quantity: quantity}
	return tx.Save(&row).Error
}

// Holdings returns every good held by an account, keyed by good id. Used
// by inventory queries; returns an empty map for unknown accounts.
func (s *BalanceStore) Holdings(tx *gorm.DB, account string) (map[string]int64, error) {
	var rows []Balance
	if err := tx.Where("account_id = ?", account).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GoodID] = r.Quantity.IntPart()
	}
	return out, nil
}
