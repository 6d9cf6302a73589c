package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/rs/zerolog"
)

// SecurityRepository handles security reference data and last-known prices.
// Prices are written by the external market-data sync; the engine only
// reads them into an immutable snapshot.
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repo", "security").Logger(),
	}
}

// GetAll returns all securities ordered by ticker.
func (r *SecurityRepository) GetAll() ([]domain.Security, error) {
	rows, err := r.db.Query(`
		SELECT ticker, name, price, sector, industry, asset_type, price_as_of, last_updated
		FROM securities
		ORDER BY ticker
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	var securities []domain.Security
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return nil, err
		}
		securities = append(securities, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	return securities, nil
}

// GetPrices returns the last known price per ticker. The synthetic cash
// ticker is always present at 1.0 regardless of table contents.
func (r *SecurityRepository) GetPrices() (map[string]float64, error) {
	rows, err := r.db.Query("SELECT ticker, price FROM securities WHERE price > 0")
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var ticker string
		var price float64
		if err := rows.Scan(&ticker, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices[ticker] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	prices[domain.CashTicker] = 1.0

	return prices, nil
}

// StalePrices returns tickers whose price is older than the cutoff.
func (r *SecurityRepository) StalePrices(cutoff time.Time) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT ticker FROM securities
		WHERE price_as_of IS NOT NULL AND price_as_of < ?
		ORDER BY ticker
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale prices: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return tickers, nil
}

// Save upserts a security.
func (r *SecurityRepository) Save(sec *domain.Security) error {
	_, err := r.db.Exec(`
		INSERT INTO securities (ticker, name, price, sector, industry, asset_type, price_as_of, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			sector = excluded.sector,
			industry = excluded.industry,
			asset_type = excluded.asset_type,
			price_as_of = excluded.price_as_of,
			last_updated = excluded.last_updated
	`, sec.Ticker, sec.Name, sec.Price, sec.Sector, sec.Industry, sec.AssetType,
		sec.PriceAsOf, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save security %s: %w", sec.Ticker, err)
	}
	return nil
}

func scanSecurity(rows *sql.Rows) (domain.Security, error) {
	var sec domain.Security
	var priceAsOf sql.NullTime
	if err := rows.Scan(
		&sec.Ticker,
		&sec.Name,
		&sec.Price,
		&sec.Sector,
		&sec.Industry,
		&sec.AssetType,
		&priceAsOf,
		&sec.LastUpdated,
	); err != nil {
		return sec, fmt.Errorf("failed to scan security: %w", err)
	}
	if priceAsOf.Valid {
		sec.PriceAsOf = priceAsOf.Time
	}
	return sec, nil
}
