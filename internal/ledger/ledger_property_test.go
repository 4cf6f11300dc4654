package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"pgregory.net/rapid"

	"github.com/lberndt/galaxytrade/internal/domain"
	"github.com/lberndt/galaxytrade/internal/locks"
	"github.com/lberndt/galaxytrade/internal/store"
)

// For any transfer, either every delta applies or none does, and a
// successful transfer never changes the total quantity of any good summed
// over all accounts.
func TestProperty_TransferAtomicityAndConservation(t *testing.T) {
	accounts := []string{"user/a", "user/b", "cargo/a/sol", "cargo/b/sol"}
	goods := []string{"credits", "fuel", "carbon"}

	rapid.Check(t, func(t *rapid.T) {
		db, err := store.Open(":memory:")
		if err != nil {
			t.Fatalf("failed to open test database: %v", err)
		}
		defer db.Close()
		balances := store.NewBalanceStore()
		l := New(balances, locks.NewSet(time.Second))

		// Seed random starting balances.
		start := make(map[string]map[string]int64)
		err = db.Transaction(func(tx *gorm.DB) error {
			for _, acct := range accounts {
				start[acct] = make(map[string]int64)
				for _, good := range goods {
					qty := rapid.Int64Range(0, 50).Draw(t, "seed")
					start[acct][good] = qty
					if qty == 0 {
						continue
					}
					if err := balances.Put(tx, acct, good, decimal.NewFromInt(qty)); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}

		// Build a random change set.
		changes := domain.ChangeSet{}
		n := rapid.IntRange(1, 6).Draw(t, "deltas")
		for i := 0; i < n; i++ {
			acct := rapid.SampledFrom(accounts).Draw(t, "account")
			good := rapid.SampledFrom(goods).Draw(t, "good")
			changes.Add(acct, good, rapid.Int64Range(-60, 60).Draw(t, "delta"))
		}

		transferErr := db.Transaction(func(tx *gorm.DB) error {
			return l.Transfer(context.Background(), tx, changes)
		})
		if transferErr != nil && !errors.Is(transferErr, domain.ErrInsufficientFunds) {
			t.Fatalf("unexpected error: %v", transferErr)
		}

		// Decide what the outcome should have been.
		shouldFail := false
		for acct, deltas := range changes {
			for good, delta := range deltas {
				if start[acct][good]+delta < 0 {
					shouldFail = true
				}
			}
		}
		if shouldFail && transferErr == nil {
			t.Fatalf("transfer with a negative outcome succeeded")
		}
		if !shouldFail && transferErr != nil {
			t.Fatalf("viable transfer rejected: %v", transferErr)
		}

		// Check every balance against the expected final state.
		for _, acct := range accounts {
			for _, good := range goods {
				want := start[acct][good]
				if transferErr == nil {
					want += changes[acct][good]
				}
				var got int64
				err := db.Transaction(func(tx *gorm.DB) error {
					var err error
					got, err = l.Balance(tx, acct, good)
					return err
				})
				if err != nil {
					t.Fatalf("read failed: %v", err)
				}
				if got != want {
					t.Fatalf("%s %s: got %d, want %d", acct, good, got, want)
				}
			}
		}

		// Conservation: per-good totals over all accounts must shift only
		// by the change set's own net (which is zero for pure moves).
		for _, good := range goods {
			var startTotal, endTotal, net int64
			for _, acct := range accounts {
				startTotal += start[acct][good]
				var got int64
				_ = db.Transaction(func(tx *gorm.DB) error {
					var err error
					got, err = l.Balance(tx, acct, good)
					return err
				})
				endTotal += got
				if transferErr == nil {
					net += changes[acct][good]
				}
			}
			if endTotal != startTotal+net {
				t.Fatalf("good %s not conserved: start %d net %d end %d", good, startTotal, net, endTotal)
			}
		}
	})
}
