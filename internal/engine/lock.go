package engine

import (
	"context"

	"github.com/lberndt/galaxytrade/internal/locks"
)

// MarketLocks serializes matching passes per (system, resource) pair. A
// matching pass reads, then mutates, a dynamic order set; row-level
// discipline alone cannot stop new orders appearing between the read and
// the mutate, so one advisory lock covers the whole pass. Unrelated pairs
// stay fully concurrent.
type MarketLocks struct {
	set *locks.Set
}

// NewMarketLocks creates a MarketLocks backed by the given lock set.
func NewMarketLocks(set *locks.Set) *MarketLocks {
	return &MarketLocks{set: set}
}

// marketKey derives the stable advisory-lock key for a market. The NUL
// separator keeps distinct (system, resource) pairs from colliding.
func marketKey(system, resource string) string {
	return "market/" + system + "\x00" + resource
}

// WithMarketLock runs fn while holding the market's advisory lock. The
// lock is held across fn's entire transaction and released on return. An
// unacquired lock within the bounded wait yields domain.ErrContention; the
// caller may retry since fn never ran.
func (m *MarketLocks) WithMarketLock(ctx context.Context, system, resource string, fn func() error) error {
	release, err := m.set.Acquire(ctx, marketKey(system, resource))
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
