package snapshot

import (
	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/aristath/sleeveworks/internal/modules/registry"
)

// CashSleeveID is the synthetic sleeve holding idle cash when no explicit
// cash sleeve is defined in the registry.
const CashSleeveID = "$cash"

// PositionKey addresses one (account, ticker) position.
type PositionKey struct {
	AccountID string
	Ticker    string
}

// SleeveKey addresses one (account, sleeve) bucket.
type SleeveKey struct {
	AccountID string
	SleeveID  string
}

// Snapshot is the immutable view of a group's holdings at one instant.
// All prices and positions are captured up front; the allocation calculator
// and trade generator never perform I/O, which keeps plan generation
// deterministic for identical snapshots.
type Snapshot struct {
	GroupID    string
	TotalValue float64
	CashValue  float64

	// Per-bucket market values
	PositionValues     map[PositionKey]float64
	AccountSleeveValue map[SleeveKey]float64
	SleeveValues       map[string]float64

	// Tickers held but not assigned to any sleeve; included in TotalValue,
	// excluded from target-weight computations.
	Unassigned map[string]float64

	// Inputs carried along for downstream sizing
	Holdings   []domain.Holding
	Prices     map[string]float64
	Index      registry.Index
	CashSleeve string // resolved cash sleeve ID

	// Tickers held with no price available; their value contributed zero.
	MissingPrices []string
}

// SleevePercent returns a sleeve's share of total group value.
func (s *Snapshot) SleevePercent(sleeveID string) float64 {
	if s.TotalValue <= 0 {
		return 0
	}
	return s.SleeveValues[sleeveID] / s.TotalValue
}

// QuantityHeld returns the share count for one (account, ticker) position.
func (s *Snapshot) QuantityHeld(accountID, ticker string) float64 {
	var total float64
	for _, h := range s.Holdings {
		if h.AccountID == accountID && h.Ticker == ticker {
			total += h.Quantity
		}
	}
	return total
}

// HoldingsInSleeve returns the holdings whose tickers belong to the sleeve,
// in input order.
func (s *Snapshot) HoldingsInSleeve(sleeveID string) []domain.Holding {
	var out []domain.Holding
	for _, h := range s.Holdings {
		if s.sleeveFor(h.Ticker) == sleeveID {
			out = append(out, h)
		}
	}
	return out
}

// sleeveFor resolves a ticker's sleeve, with the synthetic cash fallback.
// Empty string means unassigned.
func (s *Snapshot) sleeveFor(ticker string) string {
	if m, ok := s.Index[ticker]; ok {
		return m.SleeveID
	}
	if ticker == domain.CashTicker {
		return s.CashSleeve
	}
	return ""
}
