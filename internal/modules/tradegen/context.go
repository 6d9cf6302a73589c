package tradegen

import (
	"time"

	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/aristath/sleeveworks/internal/modules/allocation"
	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/aristath/sleeveworks/internal/modules/snapshot"
	"github.com/aristath/sleeveworks/internal/modules/washsale"
)

// HarvestThresholds decides which unrealized losses qualify for harvesting.
// Either condition alone is sufficient. A threshold of zero is treated as
// not configured; if both are zero nothing qualifies, which guards against
// an accidental harvest-everything configuration.
type HarvestThresholds struct {
	MinLossPct float64 // loss as fraction of cost basis, e.g. 0.05
	MinLossAbs float64 // dollar floor, e.g. 2500
}

// Qualifies reports whether a loss of the given size on the given cost
// basis meets either threshold.
func (t HarvestThresholds) Qualifies(loss, costValue float64) bool {
	if loss <= 0 {
		return false
	}
	if t.MinLossPct > 0 && costValue > 0 && loss/costValue >= t.MinLossPct {
		return true
	}
	if t.MinLossAbs > 0 && loss >= t.MinLossAbs {
		return true
	}
	return false
}

// GenerateContext is the immutable input of one generation run. Everything
// is fetched up front; the generator does no I/O, so two runs over the same
// context and timestamp produce the same plan.
type GenerateContext struct {
	Group      *registry.RebalancingGroup
	Snap       *snapshot.Snapshot
	Allocation *allocation.Result // nil only for tlhSwap
	Sleeves    map[string]registry.Sleeve
	Blocked    *washsale.BlockedSet

	AvailableCash  float64
	MinTradeAmount float64
	Harvest        HarvestThresholds
	Now            time.Time
}

// Plan is the ordered output of one generation run, alongside the data-gap
// warnings collected while computing it. Partial plans are valid: a missing
// price or a fully blocked sleeve degrades the plan, never aborts it.
type Plan struct {
	ID          string               `json:"id"`
	GroupID     string               `json:"group_id"`
	Strategy    Strategy             `json:"strategy"`
	Trades      []domain.TradeIntent `json:"trades"`
	Warnings    []string             `json:"warnings,omitempty"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Sells returns only the sell intents, in plan order.
func (p *Plan) Sells() []domain.TradeIntent {
	var out []domain.TradeIntent
	for _, t := range p.Trades {
		if t.Side == domain.TradeSideSell {
			out = append(out, t)
		}
	}
	return out
}
