package domain

import "time"

// Trade records one executed fill between a buyer and a seller. Trades are
// append-only: created once by the matching engine, never mutated. The
// price is always the resting counter-order's price.
type Trade struct {
	TradeID    string
	System     string
	Resource   string
	Buyer      string
	Seller     string
	Price      int64
	Quantity   int64
	ExecutedAt time.Time
}
