package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/lberndt/galaxytrade/internal/domain"
	"github.com/lberndt/galaxytrade/internal/ledger"
	"github.com/lberndt/galaxytrade/internal/store"
)

// TransferService exposes the ledger to the non-market flows: fixed-price
// sales, ship purchases, production inputs and outputs, and cargo moves
// between fleets and stations. Each call is one atomic transfer in its own
// transaction.
type TransferService struct {
	db       *store.DB
	ledger   *ledger.Ledger
	balances *store.BalanceStore
}

// NewTransferService creates a TransferService.
func NewTransferService(db *store.DB, l *ledger.Ledger, balances *store.BalanceStore) *TransferService {
	return &TransferService{db: db, ledger: l, balances: balances}
}

// Transfer applies the change set atomically. Every named (account, good)
// delta applies or none does; any participant going negative rejects the
// whole set with domain.ErrInsufficientFunds.
func (s *TransferService) Transfer(ctx context.Context, changes domain.ChangeSet) error {
	if len(changes) == 0 {
		return &domain.ValidationError{Message: "transfer requires at least one change"}
	}
	for account, goods := range changes {
		if account == "" {
			return &domain.ValidationError{Message: "account id must not be empty"}
		}
		if len(goods) == 0 {
			return &domain.ValidationError{Message: "account " + account + " has no deltas"}
		}
		for good := range goods {
			if good == "" {
				return &domain.ValidationError{Message: "good id must not be empty"}
			}
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.ledger.Transfer(ctx, tx, changes)
	})
}

// Holdings returns every good held by an account. Unknown accounts read as
// empty: an emptied inventory has no rows left.
func (s *TransferService) Holdings(ctx context.Context, account string) (map[string]int64, error) {
	if account == "" {
		return nil, &domain.ValidationError{Message: "account id must not be empty"}
	}
	var out map[string]int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.balances.Holdings(tx, account)
		return err
	})
	return out, err
}
