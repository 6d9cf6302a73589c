package washsale

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists wash-sale block records. Records must stay durable
// until their 31-day window lapses; the purge job removes them after.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new wash-sale repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "washsale").Logger(),
	}
}

// Insert stores a new block record.
func (r *Repository) Insert(rec *Record) error {
	result, err := r.db.Exec(`
		INSERT INTO restricted_securities (ticker, account_id, sold_at, blocked_until)
		VALUES (?, ?, ?, ?)
	`, rec.Ticker, rec.AccountID, rec.SoldAt, rec.BlockedUntil)
	if err != nil {
		return fmt.Errorf("failed to insert wash-sale record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read record id: %w", err)
	}
	rec.ID = id

	return nil
}

// ActiveBlocks returns all records whose window has not lapsed, ordered by
// ticker then account.
func (r *Repository) ActiveBlocks(now time.Time) ([]Record, error) {
	rows, err := r.db.Query(`
		SELECT id, ticker, account_id, sold_at, blocked_until
		FROM restricted_securities
		WHERE blocked_until > ?
		ORDER BY ticker, account_id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query active blocks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Ticker, &rec.AccountID, &rec.SoldAt, &rec.BlockedUntil); err != nil {
			return nil, fmt.Errorf("failed to scan wash-sale record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wash-sale records: %w", err)
	}

	return records, nil
}

// PurgeLapsed deletes records whose window has passed. Returns the count.
func (r *Repository) PurgeLapsed(now time.Time) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM restricted_securities WHERE blocked_until <= ?
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge lapsed blocks: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged blocks: %w", err)
	}

	return deleted, nil
}
