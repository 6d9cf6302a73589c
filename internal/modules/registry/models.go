package registry

import (
	"errors"
	"fmt"
	"sort"
)

// TotalWeightBps is the required sum of a model's target weights.
const TotalWeightBps = 10000

// WeightSumToleranceBps absorbs rounding noise during validation.
const WeightSumToleranceBps = 1

// ErrWeightSum is returned when a model's weights do not sum to 100%.
var ErrWeightSum = errors.New("model weights must sum to 10000 basis points")

// SleeveKind distinguishes normal sleeves from the synthetic cash sleeve.
type SleeveKind string

const (
	SleeveKindNormal SleeveKind = "normal"
	SleeveKindCash   SleeveKind = "cash"
)

// MemberKind tags a sleeve member's role. Target and alternate members are
// eligible buy candidates in rank order; legacy members may be held or sold
// but are never bought.
type MemberKind string

const (
	MemberKindTarget    MemberKind = "target"
	MemberKindAlternate MemberKind = "alternate"
	MemberKindLegacy    MemberKind = "legacy"
)

// IsBuyEligible reports whether a member of this kind may be bought.
func (k MemberKind) IsBuyEligible() bool {
	return k == MemberKindTarget || k == MemberKindAlternate
}

// SleeveMember is one security inside a sleeve, with its buy-preference rank.
type SleeveMember struct {
	Ticker string     `json:"ticker"`
	Rank   int        `json:"rank"`
	Kind   MemberKind `json:"kind"`
}

// Sleeve is a named, ranked list of interchangeable securities.
type Sleeve struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Kind    SleeveKind     `json:"kind"`
	Members []SleeveMember `json:"members"`
}

// Validate checks sleeve invariants: positive ranks, unique per sleeve,
// and no ticker listed twice.
func (s *Sleeve) Validate() error {
	seenRank := make(map[int]string)
	seenTicker := make(map[string]bool)
	for _, m := range s.Members {
		if m.Rank < 1 {
			return fmt.Errorf("sleeve %s: member %s has non-positive rank %d", s.ID, m.Ticker, m.Rank)
		}
		if other, dup := seenRank[m.Rank]; dup {
			return fmt.Errorf("sleeve %s: rank %d shared by %s and %s", s.ID, m.Rank, other, m.Ticker)
		}
		if seenTicker[m.Ticker] {
			return fmt.Errorf("sleeve %s: ticker %s listed twice", s.ID, m.Ticker)
		}
		seenRank[m.Rank] = m.Ticker
		seenTicker[m.Ticker] = true
	}
	return nil
}

// TargetMember returns the preferred (lowest-rank buy-eligible) member, or
// nil when every member is legacy.
func (s *Sleeve) TargetMember() *SleeveMember {
	candidates := s.BuyCandidates()
	if len(candidates) == 0 {
		return nil
	}
	return &candidates[0]
}

// BuyCandidates returns the buy-eligible members sorted by ascending rank.
// Legacy members are excluded: they may be held or sold, never bought.
func (s *Sleeve) BuyCandidates() []SleeveMember {
	var out []SleeveMember
	for _, m := range s.Members {
		if m.Kind.IsBuyEligible() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// ModelMember assigns a target weight, in basis points, to one sleeve.
type ModelMember struct {
	SleeveID        string `json:"sleeve_id"`
	TargetWeightBps int64  `json:"target_weight_bps"`
}

// Model is a named weighting template applied to a rebalancing group.
type Model struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Members []ModelMember `json:"members"`
}

// WeightSumBps returns the sum of all member weights.
func (m *Model) WeightSumBps() int64 {
	var sum int64
	for _, mm := range m.Members {
		sum += mm.TargetWeightBps
	}
	return sum
}

// Validate checks that weights are non-negative, sleeves are not repeated,
// and the total lands on 10000 bps within tolerance. A model that fails
// validation must not be assigned to a group.
func (m *Model) Validate() error {
	seen := make(map[string]bool)
	for _, mm := range m.Members {
		if mm.TargetWeightBps < 0 {
			return fmt.Errorf("model %s: sleeve %s has negative weight %d", m.ID, mm.SleeveID, mm.TargetWeightBps)
		}
		if seen[mm.SleeveID] {
			return fmt.Errorf("model %s: sleeve %s listed twice", m.ID, mm.SleeveID)
		}
		seen[mm.SleeveID] = true
	}

	sum := m.WeightSumBps()
	diff := sum - TotalWeightBps
	if diff < -WeightSumToleranceBps || diff > WeightSumToleranceBps {
		return fmt.Errorf("%w: got %d", ErrWeightSum, sum)
	}
	return nil
}

// RebalancingGroup is a set of accounts managed together against at most
// one model. A group with no model cannot generate allocation trades.
type RebalancingGroup struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	AccountIDs []string `json:"account_ids"`
	ModelID    string   `json:"model_id,omitempty"` // empty = unassigned
}

// HasModel reports whether a model has been assigned.
func (g *RebalancingGroup) HasModel() bool {
	return g.ModelID != ""
}

// Membership locates a ticker inside the sleeve universe.
type Membership struct {
	SleeveID string
	Rank     int
	Kind     MemberKind
}

// Index maps ticker → sleeve membership. Tickers held but absent from the
// index are "unassigned" for allocation purposes.
type Index map[string]Membership

// BuildIndex flattens sleeves into a ticker lookup. A ticker appearing in
// multiple sleeves keeps its first assignment; sleeves are processed in
// ascending ID order so the result is deterministic.
func BuildIndex(sleeves []Sleeve) Index {
	sorted := make([]Sleeve, len(sleeves))
	copy(sorted, sleeves)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	idx := make(Index)
	for _, s := range sorted {
		for _, m := range s.Members {
			if _, exists := idx[m.Ticker]; exists {
				continue
			}
			idx[m.Ticker] = Membership{SleeveID: s.ID, Rank: m.Rank, Kind: m.Kind}
		}
	}
	return idx
}
