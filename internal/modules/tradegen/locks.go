package tradegen

import (
	"sort"
	"sync"
)

// AccountLocks serializes compute-plan-then-submit per account. Two
// read-only previews may run concurrently, but overlapping submissions
// against the same holdings would double-count sellable shares.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAccountLocks creates a new advisory lock registry
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Acquire takes the lock for every listed account and returns the release
// function. Accounts are locked in sorted order so two overlapping groups
// cannot deadlock.
func (a *AccountLocks) Acquire(accountIDs []string) func() {
	sorted := make([]string, len(accountIDs))
	copy(sorted, accountIDs)
	sort.Strings(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		m := a.lockFor(id)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (a *AccountLocks) lockFor(accountID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		a.locks[accountID] = m
	}
	return m
}
