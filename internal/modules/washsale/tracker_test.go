package washsale

import (
	"testing"
	"time"

	"github.com/aristath/sleeveworks/internal/config"
	"github.com/aristath/sleeveworks/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var soldAt = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T, scope config.WashSaleScope) *Tracker {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db.Conn(), zerolog.Nop())
	return NewTracker(repo, scope, zerolog.Nop())
}

func TestRecordSale_LossCreatesBlock(t *testing.T) {
	tracker := newTestTracker(t, config.ScopeGroup)

	// 100 × (100 − 90) = 1000 realized loss
	rec, err := tracker.RecordSale("AAA", "acct1", 100, 100, 90, soldAt)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, soldAt.Add(31*24*time.Hour), rec.BlockedUntil)
	assert.True(t, tracker.IsBlocked("AAA", "acct1", soldAt.Add(24*time.Hour)))
	assert.True(t, tracker.IsBlocked("AAA", "acct1", soldAt.Add(30*24*time.Hour)))
	assert.False(t, tracker.IsBlocked("AAA", "acct1", soldAt.Add(32*24*time.Hour)))
}

func TestRecordSale_GainCreatesNoBlock(t *testing.T) {
	tracker := newTestTracker(t, config.ScopeGroup)

	rec, err := tracker.RecordSale("AAA", "acct1", 100, 90, 100, soldAt)
	require.NoError(t, err)
	assert.Nil(t, rec, "a sale at a gain must never block repurchase")
	assert.False(t, tracker.IsBlocked("AAA", "acct1", soldAt.Add(time.Hour)))
}

func TestScope_GroupVsAccount(t *testing.T) {
	now := soldAt.Add(24 * time.Hour)

	groupScoped := newTestTracker(t, config.ScopeGroup)
	_, err := groupScoped.RecordSale("AAA", "acct1", 10, 100, 50, soldAt)
	require.NoError(t, err)
	assert.True(t, groupScoped.IsBlocked("AAA", "acct2", now),
		"group scope blocks every account under common control")

	accountScoped := newTestTracker(t, config.ScopeAccount)
	_, err = accountScoped.RecordSale("AAA", "acct1", 10, 100, 50, soldAt)
	require.NoError(t, err)
	assert.True(t, accountScoped.IsBlocked("AAA", "acct1", now))
	assert.False(t, accountScoped.IsBlocked("AAA", "acct2", now),
		"account scope only blocks the selling account")
}

func TestBlocked_FailsClosedWhenStoreUnavailable(t *testing.T) {
	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	repo := NewRepository(db.Conn(), zerolog.Nop())
	tracker := NewTracker(repo, config.ScopeGroup, zerolog.Nop())

	// Closing the store makes every read fail; the tracker must report
	// everything blocked rather than risk a compliance violation.
	require.NoError(t, db.Close())

	set := tracker.Blocked(soldAt)
	assert.True(t, set.FailClosed())
	assert.True(t, set.IsBlocked("ANYTHING", "acct1", soldAt))
}

func TestPurge_RemovesOnlyLapsedBlocks(t *testing.T) {
	tracker := newTestTracker(t, config.ScopeGroup)

	_, err := tracker.RecordSale("OLD", "acct1", 10, 100, 50, soldAt.Add(-60*24*time.Hour))
	require.NoError(t, err)
	_, err = tracker.RecordSale("NEW", "acct1", 10, 100, 50, soldAt)
	require.NoError(t, err)

	deleted, err := tracker.Purge(soldAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, err := tracker.ActiveRecords(soldAt.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "NEW", records[0].Ticker)
}

func TestBlockedSet_ZeroValueBlocksNothing(t *testing.T) {
	var set *BlockedSet
	assert.False(t, set.IsBlocked("AAA", "acct1", soldAt))

	empty := NewBlockedSet(nil, true)
	assert.False(t, empty.IsBlocked("AAA", "acct1", soldAt))
}
