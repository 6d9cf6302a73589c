package allocation

import "errors"

// ErrNoModel is returned when a group has no assigned model; an unassigned
// group cannot generate allocation-based trades.
var ErrNoModel = errors.New("rebalancing group has no assigned model")

// SleeveAllocation is one sleeve's current-vs-target row.
type SleeveAllocation struct {
	SleeveID        string  `json:"sleeve_id"`
	TargetWeightBps int64   `json:"target_weight_bps"`
	CurrentValue    float64 `json:"current_value"`
	TargetValue     float64 `json:"target_value"`
	Difference      float64 `json:"difference"` // target − current; positive = under-target
	CurrentPct      float64 `json:"current_pct"`
	TargetPct       float64 `json:"target_pct"`
	PercentDistance float64 `json:"percent_distance"`
}

// Result is the full allocation picture for one group at one snapshot.
type Result struct {
	GroupID    string             `json:"group_id"`
	TotalValue float64            `json:"total_value"`
	CashValue  float64            `json:"cash_value"` // investable slack when cash is unmodeled
	Sleeves    []SleeveAllocation `json:"sleeves"`    // ascending sleeve ID
	Unassigned map[string]float64 `json:"unassigned,omitempty"`
}

// Sleeve returns the row for a sleeve ID, or nil.
func (r *Result) Sleeve(id string) *SleeveAllocation {
	for i := range r.Sleeves {
		if r.Sleeves[i].SleeveID == id {
			return &r.Sleeves[i]
		}
	}
	return nil
}

// SecurityRow is the per-security line of the presentation summary.
type SecurityRow struct {
	Ticker     string  `json:"ticker"`
	SleeveID   string  `json:"sleeve_id,omitempty"` // empty = unassigned
	AccountID  string  `json:"account_id"`
	Value      float64 `json:"value"`
	CurrentPct float64 `json:"current_pct"`
}

// Summary is the read-only projection consumed by presentation layers. It is
// produced by an explicit mapping from the typed Result; the engine's
// internal types never loosen to fit rendering needs.
type Summary struct {
	GroupID    string             `json:"group_id"`
	TotalValue float64            `json:"total_value"`
	CashValue  float64            `json:"cash_value"`
	TotalDrift float64            `json:"total_drift"`
	MaxDrift   float64            `json:"max_drift"`
	Sleeves    []SleeveAllocation `json:"sleeves"`
	Securities []SecurityRow      `json:"securities"`
	Warnings   []string           `json:"warnings,omitempty"`
}
