package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lberndt/galaxytrade/internal/domain"
	"github.com/lberndt/galaxytrade/internal/ledger"
	"github.com/lberndt/galaxytrade/internal/store"
)

// Submission is one order intent handed to the matching engine.
//
// A standing submission rests its unmatched remainder on the book at
// LimitPrice (merging with an existing order at the same price). An
// immediate submission takes the most favorable bound possible instead of
// a limit, and its unmatched remainder is simply not transacted.
type Submission struct {
	System     string
	Resource   string
	Owner      string
	Side       domain.Side
	Quantity   int64
	LimitPrice int64 // ignored when Immediate
	Immediate  bool
}

// Result reports what a matching pass exchanged. A partial fill is a valid
// success; callers receive the exact totals.
type Result struct {
	QuantityExchanged  int64
	TotalConsideration int64 // credits moved buyer→seller across all fills
	Trades             []domain.Trade
}

// Matcher walks the opposite side of a market's book in price-time
// priority, settling each fill through the ledger. No matching state is
// held between calls: the book is fully persisted and re-derived from
// storage on every pass, which trades a little read cost for the absence
// of staleness bugs.
type Matcher struct {
	db      *store.DB
	ledger  *ledger.Ledger
	orders  *store.OrderStore
	trades  *store.TradeStore
	markets *MarketLocks
}

// NewMatcher creates a Matcher with the given dependencies.
func NewMatcher(db *store.DB, l *ledger.Ledger, orders *store.OrderStore, trades *store.TradeStore, markets *MarketLocks) *Matcher {
	return &Matcher{
		db:      db,
		ledger:  l,
		orders:  orders,
		trades:  trades,
		markets: markets,
	}
}

// Execute runs one matching pass for the submission. The market's advisory
// lock is held around a single transaction covering the entire pass, so no
// two concurrent submissions on one (system, resource) pair can observe or
// mutate overlapping book state, and any failure rolls everything back.
func (m *Matcher) Execute(ctx context.Context, sub Submission) (Result, error) {
	var res Result
	err := m.markets.WithMarketLock(ctx, sub.System, sub.Resource, func() error {
		return m.db.Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = m.run(ctx, tx, sub)
			return err
		})
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Cancel withdraws a resting order identified by its natural key. It takes
// the market lock like a matching pass does, so a cancel can never race a
// fill against the same order. Nothing is refunded: standing orders hold no
// escrow.
func (m *Matcher) Cancel(ctx context.Context, system, resource, owner string, side domain.Side, price int64) error {
	return m.markets.WithMarketLock(ctx, system, resource, func() error {
		return m.db.Transaction(func(tx *gorm.DB) error {
			return m.orders.Remove(tx, system, resource, owner, side, price)
		})
	})
}

func (m *Matcher) run(ctx context.Context, tx *gorm.DB, sub Submission) (Result, error) {
	if !sub.Side.Valid() {
		return Result{}, &domain.ValidationError{Message: "side must be buy or sell"}
	}
	if sub.Quantity <= 0 {
		return Result{}, &domain.ValidationError{Message: "quantity must be positive"}
	}
	if !sub.Immediate && sub.LimitPrice < 0 {
		return Result{}, &domain.ValidationError{Message: "price must not be negative"}
	}

	limit := sub.LimitPrice
	if sub.Immediate {
		// Most favorable bound: a buy accepts any ask, a sell any bid.
		if sub.Side == domain.SideBuy {
			limit = math.MaxInt64
		} else {
			limit = 0
		}
	}

	cargo := domain.CargoAccount(sub.Owner, sub.System)
	currency := domain.CurrencyAccount(sub.Owner)

	// Placement-time check: not holding enough to place the order at all is
	// rejected before matching starts, distinct from running out mid-match.
	var spendable int64
	if sub.Side == domain.SideSell {
		held, err := m.ledger.Balance(tx, cargo, sub.Resource)
		if err != nil {
			return Result{}, err
		}
		if held < sub.Quantity {
			return Result{}, domain.ErrInsufficientFunds
		}
	} else {
		held, err := m.ledger.Balance(tx, currency, domain.GoodCredits)
		if err != nil {
			return Result{}, err
		}
		// quantity > held/price is price*quantity > held without the
		// product, which can overflow int64 for attacker-chosen values.
		if !sub.Immediate && sub.LimitPrice > 0 && sub.Quantity > held/sub.LimitPrice {
			return Result{}, domain.ErrInsufficientFunds
		}
		if sub.Immediate && held <= 0 {
			return Result{}, domain.ErrInsufficientFunds
		}
		spendable = held
	}

	var res Result
	remaining := sub.Quantity
	executedAt := time.Now()

	for remaining > 0 {
		counter, err := m.orders.BestCounter(tx, sub.System, sub.Resource, sub.Side, limit)
		if err != nil {
			return Result{}, err
		}
		if counter == nil {
			break // opposite book exhausted at this limit
		}

		matchQty := remaining
		if counter.Quantity < matchQty {
			matchQty = counter.Quantity
		}

		// A buyer can never spend more currency than held: cap the fill so
		// matchQty * counterPrice stays within the remaining spendable
		// credits. Capping below the wanted quantity exhausts the funds and
		// stops the scan after this fill, with no overshoot.
		fundsExhausted := false
		if sub.Side == domain.SideBuy && counter.Price > 0 {
			affordable := spendable / counter.Price
			if affordable < matchQty {
				matchQty = affordable
				fundsExhausted = true
			}
		}
		if matchQty == 0 {
			break
		}

		buyer, seller := sub.Owner, counter.Owner
		if sub.Side == domain.SideSell {
			buyer, seller = counter.Owner, sub.Owner
		}
		cost := matchQty * counter.Price

		// Resource seller→buyer and currency buyer→seller move in one
		// ledger call; the ledger's own check is the final backstop for
		// both parties regardless of the bookkeeping above.
		changes := domain.ChangeSet{}
		changes.Add(domain.CargoAccount(seller, sub.System), sub.Resource, -matchQty)
		changes.Add(domain.CargoAccount(buyer, sub.System), sub.Resource, matchQty)
		changes.Add(domain.CurrencyAccount(buyer), domain.GoodCredits, -cost)
		changes.Add(domain.CurrencyAccount(seller), domain.GoodCredits, cost)
		if err := m.ledger.Transfer(ctx, tx, changes); err != nil {
			return Result{}, err
		}

		if err := m.orders.Decrement(tx, counter, matchQty); err != nil {
			return Result{}, err
		}

		// The resting side always sets the price: the aggressor never pays
		// or receives worse than the book showed.
		trade := domain.Trade{
			TradeID:    uuid.New().String(),
			System:     sub.System,
			Resource:   sub.Resource,
			Buyer:      buyer,
			Seller:     seller,
			Price:      counter.Price,
			Quantity:   matchQty,
			ExecutedAt: executedAt,
		}
		if err := m.trades.Append(tx, &trade); err != nil {
			return Result{}, err
		}

		res.QuantityExchanged += matchQty
		res.TotalConsideration += cost
		res.Trades = append(res.Trades, trade)
		remaining -= matchQty
		spendable -= cost

		if fundsExhausted {
			break
		}
	}

	// A standing submission rests its true unmatched remainder at the
	// originally submitted limit price, never repriced; one fully satisfied
	// immediately rests nothing. An immediate submission's remainder is
	// simply not transacted.
	if !sub.Immediate && remaining > 0 {
		rest := domain.Order{
			System:    sub.System,
			Resource:  sub.Resource,
			Owner:     sub.Owner,
			Side:      sub.Side,
			Price:     sub.LimitPrice,
			Quantity:  remaining,
			CreatedAt: executedAt,
		}
		if err := m.orders.Merge(tx, rest); err != nil {
			return Result{}, err
		}
	}

	return res, nil
}
