package domain

import (
	"fmt"
	"strings"
	"time"
)

// CashTicker is the synthetic ticker used for idle cash. Its price is
// fixed at 1.0 so cash participates in market-value math like any holding.
const CashTicker = "$CASH"

// LongTermHoldingDays is the boundary between short- and long-term gain
// classification. A lot opened at least this many days ago is long-term.
const LongTermHoldingDays = 366

// AssetType classifies a security
type AssetType string

const (
	AssetTypeEquity AssetType = "equity"
	AssetTypeETF    AssetType = "etf"
	AssetTypeCash   AssetType = "cash"
)

// TradeSide represents the trade direction (BUY or SELL)
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// IsValid checks if the trade side is valid
func (ts TradeSide) IsValid() bool {
	return ts == TradeSideBuy || ts == TradeSideSell
}

// TradeSideFromString creates TradeSide from string (case-insensitive)
func TradeSideFromString(value string) (TradeSide, error) {
	switch strings.ToUpper(value) {
	case "BUY":
		return TradeSideBuy, nil
	case "SELL":
		return TradeSideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side: %q", value)
	}
}

// Security represents a tradable security. Reference data only; prices are
// refreshed by the external market-data feed and consumed read-only here.
type Security struct {
	Ticker      string    `json:"ticker"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Sector      string    `json:"sector"`
	Industry    string    `json:"industry"`
	AssetType   AssetType `json:"asset_type"`
	PriceAsOf   time.Time `json:"price_as_of"`
	LastUpdated time.Time `json:"last_updated"`
}

// Holding is a position in one account. Quantity may be fractional;
// generated trade quantities downstream are always whole shares.
type Holding struct {
	AccountID string    `json:"account_id"`
	Ticker    string    `json:"ticker"`
	Quantity  float64   `json:"quantity"`
	CostBasis float64   `json:"cost_basis"` // average cost per share
	OpenedAt  time.Time `json:"opened_at"`
}

// MarketValue returns quantity × price. A zero or missing price yields
// zero value; callers never divide by price here.
func (h Holding) MarketValue(price float64) float64 {
	if price <= 0 {
		return 0
	}
	return h.Quantity * price
}

// UnrealizedPL returns the unrealized gain (positive) or loss (negative)
// at the given price.
func (h Holding) UnrealizedPL(price float64) float64 {
	return h.Quantity * (price - h.CostBasis)
}

// IsLongTerm reports whether the lot has crossed the long-term boundary.
func (h Holding) IsLongTerm(now time.Time) bool {
	return now.Sub(h.OpenedAt) >= LongTermHoldingDays*24*time.Hour
}

// TradeIntent is the engine's output unit: a computed recommendation, not a
// submitted order. Intents are regenerated fresh on every run and become
// persisted orders only through the external order-management collaborator.
type TradeIntent struct {
	AccountID      string    `json:"account_id"`
	Ticker         string    `json:"ticker"`
	Side           TradeSide `json:"side"`
	Quantity       int64     `json:"quantity"`
	EstimatedPrice float64   `json:"estimated_price"`
	EstimatedValue float64   `json:"estimated_value"`
	Reason         string    `json:"reason"`
}
