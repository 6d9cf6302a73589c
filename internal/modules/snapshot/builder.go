package snapshot

import (
	"sort"

	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/rs/zerolog"
)

// Builder aggregates raw holdings into a Snapshot. Pure: identical inputs
// always produce an identical snapshot.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a new snapshot builder
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		log: log.With().Str("service", "snapshot").Logger(),
	}
}

// Build computes per-position, per-sleeve, and total market values for the
// group. The synthetic cash ticker is always priced at 1.0. Holdings with no
// available price contribute zero value and are reported in MissingPrices.
func (b *Builder) Build(
	group *registry.RebalancingGroup,
	holdings []domain.Holding,
	prices map[string]float64,
	index registry.Index,
) *Snapshot {
	snap := &Snapshot{
		GroupID:            group.ID,
		PositionValues:     make(map[PositionKey]float64),
		AccountSleeveValue: make(map[SleeveKey]float64),
		SleeveValues:       make(map[string]float64),
		Unassigned:         make(map[string]float64),
		Prices:             prices,
		Index:              index,
		CashSleeve:         resolveCashSleeve(index),
	}

	// Stable input order keeps MissingPrices and map accumulation
	// deterministic across runs.
	sorted := make([]domain.Holding, len(holdings))
	copy(sorted, holdings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AccountID != sorted[j].AccountID {
			return sorted[i].AccountID < sorted[j].AccountID
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})
	snap.Holdings = sorted

	missing := make(map[string]bool)
	for _, h := range sorted {
		price, ok := b.priceFor(h.Ticker, prices)
		if !ok {
			if !missing[h.Ticker] {
				missing[h.Ticker] = true
				snap.MissingPrices = append(snap.MissingPrices, h.Ticker)
				b.log.Warn().
					Str("ticker", h.Ticker).
					Str("account_id", h.AccountID).
					Msg("No price for held ticker, valued at zero")
			}
			continue
		}

		value := h.MarketValue(price)
		snap.TotalValue += value
		snap.PositionValues[PositionKey{h.AccountID, h.Ticker}] += value

		sleeveID := snap.sleeveFor(h.Ticker)
		if sleeveID == "" {
			snap.Unassigned[h.Ticker] += value
			continue
		}

		snap.AccountSleeveValue[SleeveKey{h.AccountID, sleeveID}] += value
		snap.SleeveValues[sleeveID] += value
		if h.Ticker == domain.CashTicker {
			snap.CashValue += value
		}
	}

	return snap
}

// priceFor resolves a ticker's price. Cash is fixed at 1.0. A price that is
// present but zero is a valid zero-value quote, not a data gap.
func (b *Builder) priceFor(ticker string, prices map[string]float64) (float64, bool) {
	if ticker == domain.CashTicker {
		return 1.0, true
	}
	price, ok := prices[ticker]
	if !ok {
		return 0, false
	}
	return price, true
}

// resolveCashSleeve finds a registry sleeve containing the cash ticker, or
// falls back to the synthetic cash sleeve ID.
func resolveCashSleeve(index registry.Index) string {
	if m, ok := index[domain.CashTicker]; ok {
		return m.SleeveID
	}
	return CashSleeveID
}
