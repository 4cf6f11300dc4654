package domain

import "sort"

// ChangeSet is the input of a ledger transfer: signed integer deltas per
// (account, good). The whole set is applied atomically or not at all.
type ChangeSet map[string]map[string]int64

// Add accumulates a delta for (account, good), creating nested maps as
// needed. Adding a zero delta still registers the pair, which is harmless.
func (c ChangeSet) Add(account, good string, delta int64) {
	goods, ok := c[account]
	if !ok {
		goods = make(map[string]int64)
		c[account] = goods
	}
	goods[good] += delta
}

// Accounts returns the account ids touched by the change set in sorted
// order. This is the canonical total order used for lock acquisition:
// any two transfers sharing accounts acquire them in the same relative
// order, so they can never deadlock.
func (c ChangeSet) Accounts() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Goods returns the good ids of one account's deltas in sorted order.
func (c ChangeSet) Goods(account string) []string {
	goods := make([]string, 0, len(c[account]))
	for id := range c[account] {
		goods = append(goods, id)
	}
	sort.Strings(goods)
	return goods
}
