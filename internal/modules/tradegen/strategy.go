package tradegen

import (
	"errors"
	"fmt"
)

// Strategy selects which trade-generation algorithm runs.
type Strategy string

const (
	// StrategyAllocation corrects drift: buys under-target sleeves, sells
	// over-target ones, passively harvesting losses in its sell ordering.
	StrategyAllocation Strategy = "allocation"
	// StrategyTLHSwap harvests qualifying losses and replaces each sold lot
	// with the next-ranked security in the same sleeve, holding exposure.
	StrategyTLHSwap Strategy = "tlhSwap"
	// StrategyTLHRebalance harvests like tlhSwap but routes the proceeds
	// into the most under-target sleeves instead of in-sleeve replacement.
	StrategyTLHRebalance Strategy = "tlhRebalance"
	// StrategyInvestCash deploys idle cash across under-target sleeves.
	// Never sells.
	StrategyInvestCash Strategy = "investCash"
)

// ErrUnknownStrategy is a caller error: reported, not retried.
var ErrUnknownStrategy = errors.New("unknown rebalance strategy")

// ErrOversell marks a defect: a generated sell exceeded the held quantity.
// The computation is aborted rather than risk recommending an illegal trade.
var ErrOversell = errors.New("generated sell exceeds held quantity")

// ErrBlockedBuy marks a defect: a generated buy targeted a blocked ticker.
var ErrBlockedBuy = errors.New("generated buy targets wash-sale-blocked ticker")

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyAllocation, StrategyTLHSwap, StrategyTLHRebalance, StrategyInvestCash:
		return Strategy(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// NeedsModel reports whether the strategy requires an assigned model.
// tlhSwap replaces in-sleeve and works from holdings alone.
func (s Strategy) NeedsModel() bool {
	return s != StrategyTLHSwap
}
