package allocation

import (
	"sort"

	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/aristath/sleeveworks/internal/modules/snapshot"
	"github.com/aristath/sleeveworks/pkg/formulas"
	"github.com/rs/zerolog"
)

// Calculator derives per-sleeve drift from a snapshot and a model.
// Pure: no hidden state, no randomness. Trade generation re-derives its
// plan from this on every preview, so identical inputs must yield
// identical outputs.
type Calculator struct {
	log zerolog.Logger
}

// NewCalculator creates a new allocation calculator
func NewCalculator(log zerolog.Logger) *Calculator {
	return &Calculator{
		log: log.With().Str("service", "allocation").Logger(),
	}
}

// Calculate computes current/target values and drift for every sleeve the
// model references plus every sleeve currently holding value.
//
// Sleeves absent from the model get an implicit zero target. The cash
// sleeve is the exception: when unmodeled, its balance is investable slack
// rather than an over-allocation to sell down, so it gets no row.
func (c *Calculator) Calculate(snap *snapshot.Snapshot, model *registry.Model) (*Result, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	targets := make(map[string]int64)
	for _, mm := range model.Members {
		targets[mm.SleeveID] = mm.TargetWeightBps
	}

	// Union of modeled sleeves and sleeves with current value.
	sleeveIDs := make(map[string]bool)
	for id := range targets {
		sleeveIDs[id] = true
	}
	for id := range snap.SleeveValues {
		if id == snap.CashSleeve {
			if _, ok := targets[id]; !ok {
				// Unmodeled cash is slack, not drift.
				continue
			}
		}
		sleeveIDs[id] = true
	}

	result := &Result{
		GroupID:    snap.GroupID,
		TotalValue: snap.TotalValue,
		CashValue:  snap.CashValue,
		Unassigned: snap.Unassigned,
	}

	ids := make([]string, 0, len(sleeveIDs))
	for id := range sleeveIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		weightBps := targets[id]
		currentValue := snap.SleeveValues[id]
		targetValue := float64(weightBps) / float64(registry.TotalWeightBps) * snap.TotalValue

		currentPct := 0.0
		if snap.TotalValue > 0 {
			currentPct = currentValue / snap.TotalValue
		}
		targetPct := float64(weightBps) / float64(registry.TotalWeightBps)

		// A zero target makes "percent off target" undefined; report zero
		// distance rather than an arbitrary figure.
		distance := 0.0
		if targetPct > 0 {
			distance = absFloat(currentPct - targetPct)
		}

		result.Sleeves = append(result.Sleeves, SleeveAllocation{
			SleeveID:        id,
			TargetWeightBps: weightBps,
			CurrentValue:    currentValue,
			TargetValue:     targetValue,
			Difference:      targetValue - currentValue,
			CurrentPct:      currentPct,
			TargetPct:       targetPct,
			PercentDistance: distance,
		})
	}

	return result, nil
}

// TotalDrift sums percent distance across sleeves.
func (r *Result) TotalDrift() float64 {
	return formulas.TotalDrift(r.distances())
}

// MaxDrift returns the worst single-sleeve percent distance.
func (r *Result) MaxDrift() float64 {
	return formulas.MaxDrift(r.distances())
}

func (r *Result) distances() []float64 {
	distances := make([]float64, len(r.Sleeves))
	for i, s := range r.Sleeves {
		distances[i] = s.PercentDistance
	}
	return distances
}

// BuildSummary maps the typed result onto the presentation projection.
// This is the only place engine output is reshaped for rendering.
func BuildSummary(snap *snapshot.Snapshot, result *Result) *Summary {
	summary := &Summary{
		GroupID:    result.GroupID,
		TotalValue: result.TotalValue,
		CashValue:  result.CashValue,
		TotalDrift: result.TotalDrift(),
		MaxDrift:   result.MaxDrift(),
		Sleeves:    result.Sleeves,
	}

	keys := make([]snapshot.PositionKey, 0, len(snap.PositionValues))
	for k := range snap.PositionValues {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AccountID != keys[j].AccountID {
			return keys[i].AccountID < keys[j].AccountID
		}
		return keys[i].Ticker < keys[j].Ticker
	})

	for _, k := range keys {
		value := snap.PositionValues[k]
		pct := 0.0
		if snap.TotalValue > 0 {
			pct = value / snap.TotalValue
		}
		sleeveID := ""
		if m, ok := snap.Index[k.Ticker]; ok {
			sleeveID = m.SleeveID
		}
		summary.Securities = append(summary.Securities, SecurityRow{
			Ticker:     k.Ticker,
			SleeveID:   sleeveID,
			AccountID:  k.AccountID,
			Value:      value,
			CurrentPct: pct,
		})
	}

	for _, ticker := range snap.MissingPrices {
		summary.Warnings = append(summary.Warnings, "no price for held ticker "+ticker)
	}

	return summary
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
