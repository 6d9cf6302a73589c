package tradegen

import (
	"sort"

	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/aristath/sleeveworks/internal/modules/registry"
)

// sellCandidate is one held position annotated for sell ordering.
type sellCandidate struct {
	holding    domain.Holding
	price      float64
	memberKind registry.MemberKind
	pl         float64 // unrealized gain (+) or loss (−)
	longTerm   bool
}

// sellPriority buckets candidates: losses first (passive harvest), then
// long-term gains, then short-term gains (minimize realized short-term
// gains).
func (c sellCandidate) sellPriority() int {
	switch {
	case c.pl < 0:
		return 0
	case c.longTerm:
		return 1
	default:
		return 2
	}
}

// orderSellCandidates sorts candidates into the uniform sell order:
// loss/long-term/short-term buckets, legacy holdings before target holdings
// within a bucket, larger losses first among losses, then ticker and
// account ascending for determinism.
func orderSellCandidates(candidates []sellCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if pa, pb := a.sellPriority(), b.sellPriority(); pa != pb {
			return pa < pb
		}
		aLegacy := a.memberKind == registry.MemberKindLegacy
		bLegacy := b.memberKind == registry.MemberKindLegacy
		if aLegacy != bLegacy {
			return aLegacy
		}
		if a.pl < 0 && b.pl < 0 && a.pl != b.pl {
			return a.pl < b.pl // deeper loss first
		}
		if a.holding.Ticker != b.holding.Ticker {
			return a.holding.Ticker < b.holding.Ticker
		}
		return a.holding.AccountID < b.holding.AccountID
	})
}

// driftRow pairs a sleeve with its dollar distance from target.
type driftRow struct {
	sleeveID   string
	difference float64 // positive = under-target
}

// orderByMagnitude sorts rows by descending |difference|; equal magnitudes
// fall back to ascending sleeve ID so runs are deterministic.
func orderByMagnitude(rows []driftRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		ai, aj := absFloat(rows[i].difference), absFloat(rows[j].difference)
		if ai != aj {
			return ai > aj
		}
		return rows[i].sleeveID < rows[j].sleeveID
	})
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
