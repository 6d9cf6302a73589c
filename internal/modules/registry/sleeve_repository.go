package registry

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// SleeveRepository handles sleeve database operations
type SleeveRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSleeveRepository creates a new sleeve repository
func NewSleeveRepository(db *sql.DB, log zerolog.Logger) *SleeveRepository {
	return &SleeveRepository{
		db:  db,
		log: log.With().Str("repo", "sleeve").Logger(),
	}
}

// GetAll returns all sleeves with their members, ordered by sleeve ID.
func (r *SleeveRepository) GetAll() ([]Sleeve, error) {
	rows, err := r.db.Query("SELECT id, name, kind FROM sleeves ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sleeves: %w", err)
	}
	defer rows.Close()

	var sleeves []Sleeve
	for rows.Next() {
		var s Sleeve
		if err := rows.Scan(&s.ID, &s.Name, &s.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan sleeve: %w", err)
		}
		sleeves = append(sleeves, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sleeves: %w", err)
	}

	for i := range sleeves {
		members, err := r.getMembers(sleeves[i].ID)
		if err != nil {
			return nil, err
		}
		sleeves[i].Members = members
	}

	return sleeves, nil
}

// Get returns a single sleeve by ID, or sql.ErrNoRows if absent.
func (r *SleeveRepository) Get(id string) (*Sleeve, error) {
	var s Sleeve
	err := r.db.QueryRow("SELECT id, name, kind FROM sleeves WHERE id = ?", id).
		Scan(&s.ID, &s.Name, &s.Kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get sleeve %s: %w", id, err)
	}

	members, err := r.getMembers(id)
	if err != nil {
		return nil, err
	}
	s.Members = members

	return &s, nil
}

// Save upserts a sleeve and replaces its member list atomically.
func (r *SleeveRepository) Save(s *Sleeve) error {
	if err := s.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sleeves (id, name, kind) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, kind = excluded.kind
	`, s.ID, s.Name, s.Kind)
	if err != nil {
		return fmt.Errorf("failed to save sleeve %s: %w", s.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM sleeve_members WHERE sleeve_id = ?", s.ID); err != nil {
		return fmt.Errorf("failed to clear sleeve members: %w", err)
	}

	for _, m := range s.Members {
		_, err := tx.Exec(`
			INSERT INTO sleeve_members (sleeve_id, ticker, rank, member_kind)
			VALUES (?, ?, ?, ?)
		`, s.ID, m.Ticker, m.Rank, m.Kind)
		if err != nil {
			return fmt.Errorf("failed to save member %s: %w", m.Ticker, err)
		}
	}

	return tx.Commit()
}

func (r *SleeveRepository) getMembers(sleeveID string) ([]SleeveMember, error) {
	rows, err := r.db.Query(`
		SELECT ticker, rank, member_kind
		FROM sleeve_members
		WHERE sleeve_id = ?
		ORDER BY rank
	`, sleeveID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sleeve members: %w", err)
	}
	defer rows.Close()

	var members []SleeveMember
	for rows.Next() {
		var m SleeveMember
		if err := rows.Scan(&m.Ticker, &m.Rank, &m.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan sleeve member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sleeve members: %w", err)
	}

	return members, nil
}
