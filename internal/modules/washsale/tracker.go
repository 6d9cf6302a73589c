package washsale

import (
	"time"

	"github.com/aristath/sleeveworks/internal/config"
	"github.com/rs/zerolog"
)

// Tracker maintains wash-sale blocks and answers buy-eligibility queries.
type Tracker struct {
	repo  *Repository
	scope config.WashSaleScope
	log   zerolog.Logger
}

// NewTracker creates a new wash-sale tracker
func NewTracker(repo *Repository, scope config.WashSaleScope, log zerolog.Logger) *Tracker {
	return &Tracker{
		repo:  repo,
		scope: scope,
		log:   log.With().Str("service", "washsale").Logger(),
	}
}

// RecordSale records a block when the sale realized a loss. Sales at a gain
// create no block and must never prevent later repurchase.
func (t *Tracker) RecordSale(ticker, accountID string, quantity, costBasis, salePrice float64, soldAt time.Time) (*Record, error) {
	realizedLoss := quantity * (costBasis - salePrice)
	if realizedLoss <= 0 {
		return nil, nil
	}

	rec := &Record{
		Ticker:       ticker,
		AccountID:    accountID,
		SoldAt:       soldAt,
		BlockedUntil: soldAt.Add(BlockWindow),
	}
	if err := t.repo.Insert(rec); err != nil {
		return nil, err
	}

	t.log.Info().
		Str("ticker", ticker).
		Str("account_id", accountID).
		Float64("realized_loss", realizedLoss).
		Time("blocked_until", rec.BlockedUntil).
		Msg("Wash-sale block recorded")

	return rec, nil
}

// IsBlocked answers the point query for one ticker and account.
// If the data source is unavailable the answer is blocked: a missed buy is
// recoverable, a wash-sale violation is not.
func (t *Tracker) IsBlocked(ticker, accountID string, now time.Time) bool {
	return t.Blocked(now).IsBlocked(ticker, accountID, now)
}

// Blocked loads the active blocks into an immutable set for a generation
// run. On any read error the returned set fails closed and reports every
// ticker blocked.
func (t *Tracker) Blocked(now time.Time) *BlockedSet {
	records, err := t.repo.ActiveBlocks(now)
	if err != nil {
		t.log.Error().Err(err).Msg("Wash-sale store unavailable, failing closed")
		return FailClosedSet()
	}
	return NewBlockedSet(records, t.scope == config.ScopeGroup)
}

// ActiveRecords exposes the raw active blocks for inspection endpoints.
func (t *Tracker) ActiveRecords(now time.Time) ([]Record, error) {
	return t.repo.ActiveBlocks(now)
}

// Purge removes lapsed records; called by the scheduler.
func (t *Tracker) Purge(now time.Time) (int64, error) {
	deleted, err := t.repo.PurgeLapsed(now)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		t.log.Info().Int64("deleted", deleted).Msg("Purged lapsed wash-sale blocks")
	}
	return deleted, nil
}
