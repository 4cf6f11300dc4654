// Package locks implements a keyed advisory lock set with a bounded
// acquire wait. Locks exist purely for coordination: they are independent
// of any stored row and are created on first use, dropped when the last
// waiter leaves.
package locks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lberndt/galaxytrade/internal/domain"
)

// Set is a collection of named advisory locks. The zero value is not
// usable; create one with NewSet.
type Set struct {
	wait time.Duration

	mu   sync.Mutex
	held map[string]*entry
}

type entry struct {
	sem  chan struct{} // capacity 1: holding the token means holding the lock
	refs int
}

// NewSet creates a Set whose Acquire gives up after wait and returns
// domain.ErrContention.
func NewSet(wait time.Duration) *Set {
	return &Set{
		wait: wait,
		held: make(map[string]*entry),
	}
}

// Acquire takes every named lock and returns a release function. Keys are
// deduplicated and taken in sorted order; this canonical total order is
// what makes deadlock between any two concurrent acquisitions structurally
// impossible. The bounded wait covers the whole acquisition: on timeout or
// context cancellation every lock taken so far is released and
// domain.ErrContention is returned.
func (s *Set) Acquire(ctx context.Context, keys ...string) (func(), error) {
	sorted := dedupeSorted(keys)

	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	taken := make([]*entry, 0, len(sorted))
	release := func() {
		// Reverse order, mirroring acquisition.
		for i := len(taken) - 1; i >= 0; i-- {
			<-taken[i].sem
		}
		s.mu.Lock()
		for _, key := range sorted[:len(taken)] {
			s.unref(key)
		}
		s.mu.Unlock()
	}

	for _, key := range sorted {
		e := s.ref(key)
		select {
		case e.sem <- struct{}{}:
			taken = append(taken, e)
		case <-timer.C:
			s.mu.Lock()
			s.unref(key)
			s.mu.Unlock()
			release()
			return nil, domain.ErrContention
		case <-ctx.Done():
			s.mu.Lock()
			s.unref(key)
			s.mu.Unlock()
			release()
			return nil, domain.ErrContention
		}
	}
	return release, nil
}

// ref returns the entry for key, creating it if needed, with its refcount
// incremented.
func (s *Set) ref(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.held[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		s.held[key] = e
	}
	e.refs++
	return e
}

// unref decrements key's refcount and drops the entry at zero.
// Caller must hold s.mu.
func (s *Set) unref(key string) {
	e, ok := s.held[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(s.held, key)
	}
}

func dedupeSorted(keys []string) []string {
	out := make([]string, len(keys))
	copy(out, keys)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i == 0 || k != out[n-1] {
			out[n] = k
			n++
		}
	}
	return out[:n]
}
