package domain

import "time"

// Side indicates whether an order buys or sells the resource.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid returns true for the two known side values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the side an order matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Order is a resting buy or sell order on a (system, resource) market.
// The natural key is (system, resource, owner, side, price): resubmitting
// at the same price merges into the existing row instead of creating a
// second one. Quantity is always positive; a row reaching zero is deleted.
type Order struct {
	System    string
	Resource  string
	Owner     string
	Side      Side
	Price     int64 // credits per unit
	Quantity  int64
	CreatedAt time.Time
}

// PriceLevel is one row of aggregated book depth: the summed resting
// quantity across all owners at a single price.
type PriceLevel struct {
	Price    int64
	Quantity int64
}
