package allocation

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/aristath/sleeveworks/internal/modules/snapshot"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opened = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func buildSnapshot(t *testing.T, holdings []domain.Holding, prices map[string]float64) *snapshot.Snapshot {
	t.Helper()
	group := &registry.RebalancingGroup{
		ID: "g1", Name: "Household", AccountIDs: []string{"acct1"}, ModelID: "m1",
	}
	index := registry.BuildIndex([]registry.Sleeve{
		{ID: "s1", Kind: registry.SleeveKindNormal, Members: []registry.SleeveMember{
			{Ticker: "AAA", Rank: 1, Kind: registry.MemberKindTarget},
			{Ticker: "BBB", Rank: 2, Kind: registry.MemberKindAlternate},
		}},
		{ID: "s2", Kind: registry.SleeveKindNormal, Members: []registry.SleeveMember{
			{Ticker: "CCC", Rank: 1, Kind: registry.MemberKindTarget},
		}},
	})
	return snapshot.NewBuilder(zerolog.Nop()).Build(group, holdings, prices, index)
}

func TestCalculate_TargetsAndDrift(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())

	snap := buildSnapshot(t, []domain.Holding{
		{AccountID: "acct1", Ticker: "AAA", Quantity: 100, CostBasis: 90, OpenedAt: opened}, // 10000
		{AccountID: "acct1", Ticker: "CCC", Quantity: 300, CostBasis: 95, OpenedAt: opened}, // 30000
	}, map[string]float64{"AAA": 100, "CCC": 100})

	model := &registry.Model{ID: "m1", Members: []registry.ModelMember{
		{SleeveID: "s1", TargetWeightBps: 5000},
		{SleeveID: "s2", TargetWeightBps: 5000},
	}}

	result, err := calc.Calculate(snap, model)
	require.NoError(t, err)
	require.Len(t, result.Sleeves, 2)

	s1 := result.Sleeve("s1")
	require.NotNil(t, s1)
	assert.InDelta(t, 20000.0, s1.TargetValue, 1e-9)
	assert.InDelta(t, 10000.0, s1.CurrentValue, 1e-9)
	assert.InDelta(t, 10000.0, s1.Difference, 1e-9) // under target
	assert.InDelta(t, 0.25, s1.PercentDistance, 1e-9)

	s2 := result.Sleeve("s2")
	require.NotNil(t, s2)
	assert.InDelta(t, -10000.0, s2.Difference, 1e-9) // over target
	assert.InDelta(t, 0.5, result.TotalDrift(), 1e-9)
}

func TestCalculate_ZeroTargetSleeveHasZeroDistance(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())

	snap := buildSnapshot(t, []domain.Holding{
		{AccountID: "acct1", Ticker: "AAA", Quantity: 100, CostBasis: 90, OpenedAt: opened},
		{AccountID: "acct1", Ticker: "CCC", Quantity: 100, CostBasis: 95, OpenedAt: opened},
	}, map[string]float64{"AAA": 100, "CCC": 100})

	// Model references only s1; s2 gets an implicit zero target.
	model := &registry.Model{ID: "m1", Members: []registry.ModelMember{
		{SleeveID: "s1", TargetWeightBps: 10000},
	}}

	result, err := calc.Calculate(snap, model)
	require.NoError(t, err)

	s2 := result.Sleeve("s2")
	require.NotNil(t, s2)
	assert.Zero(t, s2.TargetValue)
	assert.True(t, s2.Difference < 0, "zero-target sleeve with value is over target")
	assert.Zero(t, s2.PercentDistance, "percent off a zero target is undefined, reported as zero")
}

func TestCalculate_UnmodeledCashIsSlackNotDrift(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())

	snap := buildSnapshot(t, []domain.Holding{
		{AccountID: "acct1", Ticker: "AAA", Quantity: 100, CostBasis: 90, OpenedAt: opened},
		{AccountID: "acct1", Ticker: domain.CashTicker, Quantity: 5000, CostBasis: 1, OpenedAt: opened},
	}, map[string]float64{"AAA": 100})

	model := &registry.Model{ID: "m1", Members: []registry.ModelMember{
		{SleeveID: "s1", TargetWeightBps: 10000},
	}}

	result, err := calc.Calculate(snap, model)
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, result.CashValue, 1e-9)
	for _, s := range result.Sleeves {
		assert.NotEqual(t, snap.CashSleeve, s.SleeveID, "unmodeled cash must not appear as an over-allocation")
	}
}

func TestCalculate_InputErrors(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())
	snap := buildSnapshot(t, nil, map[string]float64{})

	_, err := calc.Calculate(snap, nil)
	assert.ErrorIs(t, err, ErrNoModel)

	bad := &registry.Model{ID: "m1", Members: []registry.ModelMember{
		{SleeveID: "s1", TargetWeightBps: 9000},
	}}
	_, err = calc.Calculate(snap, bad)
	assert.ErrorIs(t, err, registry.ErrWeightSum)
}

func TestCalculate_PureFunction(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())

	holdings := []domain.Holding{
		{AccountID: "acct1", Ticker: "AAA", Quantity: 123, CostBasis: 90, OpenedAt: opened},
		{AccountID: "acct1", Ticker: "CCC", Quantity: 77, CostBasis: 95, OpenedAt: opened},
	}
	prices := map[string]float64{"AAA": 101.5, "CCC": 98.25}
	model := &registry.Model{ID: "m1", Members: []registry.ModelMember{
		{SleeveID: "s1", TargetWeightBps: 6000},
		{SleeveID: "s2", TargetWeightBps: 4000},
	}}

	a, err := calc.Calculate(buildSnapshot(t, holdings, prices), model)
	require.NoError(t, err)
	b, err := calc.Calculate(buildSnapshot(t, holdings, prices), model)
	require.NoError(t, err)

	require.Equal(t, len(a.Sleeves), len(b.Sleeves))
	for i := range a.Sleeves {
		if math.Abs(a.Sleeves[i].Difference-b.Sleeves[i].Difference) > 0 {
			t.Errorf("sleeve %s differs between identical runs", a.Sleeves[i].SleeveID)
		}
	}
}
