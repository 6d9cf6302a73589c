package tradegen

import (
	"testing"
	"time"

	"github.com/aristath/sleeveworks/internal/config"
	"github.com/aristath/sleeveworks/internal/database"
	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/aristath/sleeveworks/internal/modules/allocation"
	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/aristath/sleeveworks/internal/modules/snapshot"
	"github.com/aristath/sleeveworks/internal/modules/washsale"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv wires the full preview stack against an in-memory database.
type testEnv struct {
	svc        *Service
	tracker    *washsale.Tracker
	sleeves    *registry.SleeveRepository
	models     *registry.ModelRepository
	groups     *registry.GroupRepository
	securities *registry.SecurityRepository
	holdings   *snapshot.HoldingsRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	sleeveRepo := registry.NewSleeveRepository(db.Conn(), log)
	modelRepo := registry.NewModelRepository(db.Conn(), log)
	groupRepo := registry.NewGroupRepository(db.Conn(), log)
	securityRepo := registry.NewSecurityRepository(db.Conn(), log)
	holdingsRepo := snapshot.NewHoldingsRepository(db.Conn(), log)

	registrySvc := registry.NewService(sleeveRepo, modelRepo, groupRepo, log)
	allocSvc := allocation.NewService(
		registrySvc, securityRepo, holdingsRepo,
		snapshot.NewBuilder(log), allocation.NewCalculator(log), log,
	)
	tracker := washsale.NewTracker(washsale.NewRepository(db.Conn(), log), config.ScopeGroup, log)

	svc := NewService(
		registrySvc, allocSvc, tracker,
		NewGenerator(log), NewAccountLocks(),
		100, HarvestThresholds{MinLossPct: 0.05, MinLossAbs: 1000},
		log,
	)

	return &testEnv{
		svc:        svc,
		tracker:    tracker,
		sleeves:    sleeveRepo,
		models:     modelRepo,
		groups:     groupRepo,
		securities: securityRepo,
		holdings:   holdingsRepo,
	}
}

func (e *testEnv) seedSleeve(t *testing.T) {
	t.Helper()
	require.NoError(t, e.sleeves.Save(&registry.Sleeve{
		ID: "s1", Name: "US Equity", Kind: registry.SleeveKindNormal,
		Members: []registry.SleeveMember{
			{Ticker: "AAA", Rank: 1, Kind: registry.MemberKindTarget},
			{Ticker: "BBB", Rank: 2, Kind: registry.MemberKindAlternate},
		},
	}))
}

func (e *testEnv) seedSecurity(t *testing.T, ticker string, price float64) {
	t.Helper()
	require.NoError(t, e.securities.Save(&domain.Security{
		Ticker: ticker, Name: ticker, Price: price,
		AssetType: domain.AssetTypeETF, PriceAsOf: now,
	}))
}

// A harvest preview followed by acceptance must create a 31-day buy block
// on the harvested ticker, group-wide.
func TestPreviewAndAccept_CreatesWashSaleBlock(t *testing.T) {
	e := newTestEnv(t)
	e.seedSleeve(t)
	require.NoError(t, e.models.Save(&registry.Model{
		ID: "m1", Name: "All US", Members: []registry.ModelMember{{SleeveID: "s1", TargetWeightBps: 10000}},
	}))
	require.NoError(t, e.groups.Save(&registry.RebalancingGroup{
		ID: "g1", Name: "Household", AccountIDs: []string{"acct1"}, ModelID: "m1",
	}))
	e.seedSecurity(t, "AAA", 90)
	e.seedSecurity(t, "BBB", 45)

	lot := domain.Holding{AccountID: "acct1", Ticker: "AAA", Quantity: 100, CostBasis: 100, OpenedAt: recently}
	require.NoError(t, e.holdings.Save(&lot))

	plan, err := e.svc.Preview("g1", StrategyTLHSwap, -1, now)
	require.NoError(t, err)
	require.Len(t, plan.Trades, 2)
	require.Equal(t, domain.TradeSideSell, plan.Trades[0].Side)
	require.Equal(t, "AAA", plan.Trades[0].Ticker)
	require.Equal(t, "BBB", plan.Trades[1].Ticker)

	// No block exists on preview alone.
	assert.False(t, e.tracker.IsBlocked("AAA", "acct1", now))

	require.NoError(t, e.svc.RecordAcceptedSells(plan, []domain.Holding{lot}, now))

	assert.True(t, e.tracker.IsBlocked("AAA", "acct1", now.Add(30*24*time.Hour)))
	assert.True(t, e.tracker.IsBlocked("AAA", "acct2", now), "group scope blocks sibling accounts")
	assert.False(t, e.tracker.IsBlocked("AAA", "acct1", now.Add(32*24*time.Hour)), "window lapses after 31 days")
	assert.False(t, e.tracker.IsBlocked("BBB", "acct1", now), "the replacement buy creates no block")
}

// With the preferred member blocked, an allocation preview routes the buy
// to the next-ranked member.
func TestPreview_BlockedTickerRoutesBuyToAlternate(t *testing.T) {
	e := newTestEnv(t)
	e.seedSleeve(t)
	require.NoError(t, e.models.Save(&registry.Model{
		ID: "m1", Members: []registry.ModelMember{{SleeveID: "s1", TargetWeightBps: 10000}},
	}))
	require.NoError(t, e.groups.Save(&registry.RebalancingGroup{
		ID: "g1", AccountIDs: []string{"acct1"}, ModelID: "m1",
	}))
	e.seedSecurity(t, "AAA", 100)
	e.seedSecurity(t, "BBB", 50)
	require.NoError(t, e.holdings.Save(&domain.Holding{
		AccountID: "acct1", Ticker: domain.CashTicker, Quantity: 10000, OpenedAt: longAgo,
	}))

	// A prior realized loss on AAA is still inside its window.
	_, err := e.tracker.RecordSale("AAA", "acct1", 10, 100, 50, now.Add(-24*time.Hour))
	require.NoError(t, err)

	// availableCash < 0: spend the group's idle cash from the snapshot.
	plan, err := e.svc.Preview("g1", StrategyAllocation, -1, now)
	require.NoError(t, err)
	require.Len(t, plan.Trades, 1)

	trade := plan.Trades[0]
	assert.Equal(t, domain.TradeSideBuy, trade.Side)
	assert.Equal(t, "BBB", trade.Ticker)
	assert.Equal(t, int64(200), trade.Quantity) // 10000 / 50
}

func TestPreview_ModellessGroup(t *testing.T) {
	e := newTestEnv(t)
	e.seedSleeve(t)
	require.NoError(t, e.groups.Save(&registry.RebalancingGroup{
		ID: "g2", AccountIDs: []string{"acct1"},
	}))
	e.seedSecurity(t, "AAA", 90)
	e.seedSecurity(t, "BBB", 45)
	require.NoError(t, e.holdings.Save(&domain.Holding{
		AccountID: "acct1", Ticker: "AAA", Quantity: 100, CostBasis: 100, OpenedAt: recently,
	}))

	// Harvesting needs holdings and sleeves, not a model.
	plan, err := e.svc.Preview("g2", StrategyTLHSwap, -1, now)
	require.NoError(t, err)
	assert.Len(t, plan.Trades, 2)

	// Drift-based strategies cannot run without one.
	_, err = e.svc.Preview("g2", StrategyAllocation, -1, now)
	assert.ErrorIs(t, err, allocation.ErrNoModel)
}

func TestPreview_UnknownGroup(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.svc.Preview("nope", StrategyAllocation, -1, now)
	assert.Error(t, err)
}

func TestPreview_UnknownStrategy(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.svc.Preview("g1", Strategy("yolo"), -1, now)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
