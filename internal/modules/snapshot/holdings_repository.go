package snapshot

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/rs/zerolog"
)

// HoldingsRepository reads the positions written by the external account
// sync. The engine treats holdings as read-only input.
type HoldingsRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingsRepository creates a new holdings repository
func NewHoldingsRepository(db *sql.DB, log zerolog.Logger) *HoldingsRepository {
	return &HoldingsRepository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// GetByAccounts returns all holdings for the given accounts, ordered by
// account then ticker.
func (r *HoldingsRepository) GetByAccounts(accountIDs []string) ([]domain.Holding, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(accountIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT account_id, ticker, quantity, cost_basis, opened_at
		FROM holdings
		WHERE account_id IN (%s)
		ORDER BY account_id, ticker
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.AccountID, &h.Ticker, &h.Quantity, &h.CostBasis, &h.OpenedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// Save upserts one holding. Used by the external sync boundary and tests.
func (r *HoldingsRepository) Save(h *domain.Holding) error {
	if h.Quantity < 0 {
		return fmt.Errorf("holding %s/%s has negative quantity %f", h.AccountID, h.Ticker, h.Quantity)
	}

	_, err := r.db.Exec(`
		INSERT INTO holdings (account_id, ticker, quantity, cost_basis, opened_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id, ticker) DO UPDATE SET
			quantity = excluded.quantity,
			cost_basis = excluded.cost_basis,
			opened_at = excluded.opened_at
	`, h.AccountID, h.Ticker, h.Quantity, h.CostBasis, h.OpenedAt)
	if err != nil {
		return fmt.Errorf("failed to save holding %s/%s: %w", h.AccountID, h.Ticker, err)
	}
	return nil
}
