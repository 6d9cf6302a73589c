package registry

import (
	"testing"

	"github.com/aristath/sleeveworks/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSleeveRepository_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewSleeveRepository(db.Conn(), zerolog.Nop())

	sleeve := &Sleeve{
		ID:   "us-large",
		Name: "US Large Cap",
		Kind: SleeveKindNormal,
		Members: []SleeveMember{
			{Ticker: "VOO", Rank: 1, Kind: MemberKindTarget},
			{Ticker: "IVV", Rank: 2, Kind: MemberKindAlternate},
			{Ticker: "OLD", Rank: 9, Kind: MemberKindLegacy},
		},
	}
	require.NoError(t, repo.Save(sleeve))

	got, err := repo.Get("us-large")
	require.NoError(t, err)
	require.Equal(t, "US Large Cap", got.Name)
	require.Len(t, got.Members, 3)
	require.Equal(t, "VOO", got.Members[0].Ticker) // ordered by rank
	require.Equal(t, MemberKindLegacy, got.Members[2].Kind)

	// Save replaces members, not appends.
	sleeve.Members = sleeve.Members[:2]
	require.NoError(t, repo.Save(sleeve))
	got, err = repo.Get("us-large")
	require.NoError(t, err)
	require.Len(t, got.Members, 2)
}

func TestSleeveRepository_SaveRejectsInvalid(t *testing.T) {
	db := newTestDB(t)
	repo := NewSleeveRepository(db.Conn(), zerolog.Nop())

	bad := &Sleeve{ID: "s1", Members: []SleeveMember{
		{Ticker: "AAA", Rank: 1, Kind: MemberKindTarget},
		{Ticker: "BBB", Rank: 1, Kind: MemberKindAlternate},
	}}
	require.Error(t, repo.Save(bad))
}

func TestModelRepository_SaveRejectsBadWeightSum(t *testing.T) {
	db := newTestDB(t)
	repo := NewModelRepository(db.Conn(), zerolog.Nop())

	bad := &Model{ID: "m1", Name: "Broken", Members: []ModelMember{
		{SleeveID: "a", TargetWeightBps: 5000},
	}}
	require.ErrorIs(t, repo.Save(bad), ErrWeightSum)
}

func TestGroupRepository_AssignModel(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.Nop()

	sleeves := NewSleeveRepository(db.Conn(), log)
	models := NewModelRepository(db.Conn(), log)
	groups := NewGroupRepository(db.Conn(), log)
	service := NewService(sleeves, models, groups, log)

	require.NoError(t, sleeves.Save(&Sleeve{ID: "s1", Name: "One", Kind: SleeveKindNormal,
		Members: []SleeveMember{{Ticker: "AAA", Rank: 1, Kind: MemberKindTarget}}}))
	require.NoError(t, models.Save(&Model{ID: "m1", Name: "All-in", Members: []ModelMember{
		{SleeveID: "s1", TargetWeightBps: 10000},
	}}))
	require.NoError(t, groups.Save(&RebalancingGroup{
		ID: "g1", Name: "Household", AccountIDs: []string{"acct1", "acct2"},
	}))

	require.NoError(t, service.AssignModel("g1", "m1"))

	group, err := groups.Get("g1")
	require.NoError(t, err)
	require.True(t, group.HasModel())
	require.Equal(t, "m1", group.ModelID)
	require.Equal(t, []string{"acct1", "acct2"}, group.AccountIDs)

	// Unknown group surfaces an error, not a silent no-op.
	require.Error(t, service.AssignModel("missing", "m1"))
}
