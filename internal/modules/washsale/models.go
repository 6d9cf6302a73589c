package washsale

import (
	"time"
)

// BlockWindow is how long a ticker stays blocked for buying after a sale
// realizes a loss. The IRS disallows the loss if a substantially identical
// security is repurchased within 30 days; a 31-day forward window keeps a
// full day of margin.
const BlockWindow = 31 * 24 * time.Hour

// Record is one wash-sale block created by a realized-loss sale.
type Record struct {
	ID           int64     `json:"id"`
	Ticker       string    `json:"ticker"`
	AccountID    string    `json:"account_id"`
	SoldAt       time.Time `json:"sold_at"`
	BlockedUntil time.Time `json:"blocked_until"`
}

// Active reports whether the block still applies at the given instant.
func (r Record) Active(now time.Time) bool {
	return now.Before(r.BlockedUntil)
}

// BlockedSet answers "may this ticker be bought in this account right now".
// The zero value blocks nothing. A set built after a tracker read failure
// blocks everything: compliance checks fail closed, never open.
type BlockedSet struct {
	failClosed bool
	byTicker   map[string][]Record // scope=group: any account's record blocks
	scopeGroup bool
}

// IsBlocked reports whether the ticker is blocked for buying in the account.
func (s *BlockedSet) IsBlocked(ticker, accountID string, now time.Time) bool {
	if s == nil {
		return false
	}
	if s.failClosed {
		return true
	}
	for _, rec := range s.byTicker[ticker] {
		if !rec.Active(now) {
			continue
		}
		if s.scopeGroup || rec.AccountID == accountID {
			return true
		}
	}
	return false
}

// NewBlockedSet builds a set from records. With scopeGroup, a block in any
// account applies to every account under common control.
func NewBlockedSet(records []Record, scopeGroup bool) *BlockedSet {
	set := &BlockedSet{
		byTicker:   make(map[string][]Record),
		scopeGroup: scopeGroup,
	}
	for _, rec := range records {
		set.byTicker[rec.Ticker] = append(set.byTicker[rec.Ticker], rec)
	}
	return set
}

// FailClosedSet returns a set that reports every ticker blocked, used when
// the tracker's data source is unavailable.
func FailClosedSet() *BlockedSet {
	return &BlockedSet{failClosed: true}
}

// FailClosed reports whether this set was built from an unavailable or
// ambiguous data source.
func (s *BlockedSet) FailClosed() bool {
	return s != nil && s.failClosed
}
