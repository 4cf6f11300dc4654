// Package ledger implements the atomic multi-account transfer primitive
// every state-changing game action builds on. A transfer applies signed
// integer deltas to an arbitrary set of (account, good) pairs in one
// all-or-nothing step: if any participant would go negative, the entire
// transfer is rejected with no balance change.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lberndt/galaxytrade/internal/domain"
	"github.com/lberndt/galaxytrade/internal/locks"
	"github.com/lberndt/galaxytrade/internal/store"
)

// Ledger moves goods between accounts. There is no global mutex: each
// transfer locks only the accounts it touches, always in the same sorted
// order, so two transfers sharing accounts can never deadlock no matter
// which participant order their callers named.
type Ledger struct {
	balances *store.BalanceStore
	accounts *locks.Set
}

// New creates a Ledger. accountLocks bounds how long a transfer waits for
// contended accounts before failing with domain.ErrContention.
func New(balances *store.BalanceStore, accountLocks *locks.Set) *Ledger {
	return &Ledger{
		balances: balances,
		accounts: accountLocks,
	}
}

// Transfer applies every delta in changes within the caller's transaction.
//
// The algorithm is validate-then-apply: all involved (account, good) rows
// are read first, in canonical sorted order (account id, then good id),
// and every debit is checked against the current balance. Only when every
// participant stays non-negative is anything written. Rows reaching zero
// are deleted; no value is ever created implicitly.
//
// Returns domain.ErrInsufficientFunds when any pair would go negative and
// domain.ErrContention when the account locks cannot be acquired in time.
func (l *Ledger) Transfer(ctx context.Context, tx *gorm.DB, changes domain.ChangeSet) error {
	if len(changes) == 0 {
		return nil
	}

	accountIDs := changes.Accounts()
	lockKeys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		lockKeys[i] = "acct/" + id
	}
	release, err := l.accounts.Acquire(ctx, lockKeys...)
	if err != nil {
		return err
	}
	defer release()

	type result struct {
		account  string
		good     string
		quantity decimal.Decimal
	}
	results := make([]result, 0, len(accountIDs))

	// Validate: read each involved row and compute its post-transfer
	// quantity. Nothing is written until every pair has passed.
	for _, account := range accountIDs {
		for _, good := range changes.Goods(account) {
			delta := changes[account][good]
			current, err := l.balances.Get(tx, account, good)
			if err != nil {
				return err
			}
			next := current.Add(decimal.NewFromInt(delta))
			if next.IsNegative() {
				return domain.ErrInsufficientFunds
			}
			results = append(results, result{account: account, good: good, quantity: next})
		}
	}

	// Apply: upsert non-zero rows, delete zero rows.
	for _, r := range results {
		if err := l.balances.Put(tx, r.account, r.good, r.quantity); err != nil {
			return err
		}
	}
	return nil
}

// Balance reads one (account, good) quantity without locking; absent rows
// read as zero.
func (l *Ledger) Balance(tx *gorm.DB, account, good string) (int64, error) {
	return l.balances.GetInt(tx, account, good)
}
