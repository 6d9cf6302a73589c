package registry

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// GroupRepository handles rebalancing group database operations
type GroupRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *sql.DB, log zerolog.Logger) *GroupRepository {
	return &GroupRepository{
		db:  db,
		log: log.With().Str("repo", "group").Logger(),
	}
}

// GetAll returns all rebalancing groups with their account memberships.
func (r *GroupRepository) GetAll() ([]RebalancingGroup, error) {
	rows, err := r.db.Query(`
		SELECT id, name, COALESCE(model_id, '')
		FROM rebalancing_groups
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []RebalancingGroup
	for rows.Next() {
		var g RebalancingGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.ModelID); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	for i := range groups {
		accounts, err := r.getAccounts(groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].AccountIDs = accounts
	}

	return groups, nil
}

// Get returns a single group by ID.
func (r *GroupRepository) Get(id string) (*RebalancingGroup, error) {
	var g RebalancingGroup
	err := r.db.QueryRow(`
		SELECT id, name, COALESCE(model_id, '')
		FROM rebalancing_groups
		WHERE id = ?
	`, id).Scan(&g.ID, &g.Name, &g.ModelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", id, err)
	}

	accounts, err := r.getAccounts(id)
	if err != nil {
		return nil, err
	}
	g.AccountIDs = accounts

	return &g, nil
}

// Save upserts a group and replaces its account list.
func (r *GroupRepository) Save(g *RebalancingGroup) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var modelID interface{}
	if g.ModelID != "" {
		modelID = g.ModelID
	}

	_, err = tx.Exec(`
		INSERT INTO rebalancing_groups (id, name, model_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, model_id = excluded.model_id
	`, g.ID, g.Name, modelID)
	if err != nil {
		return fmt.Errorf("failed to save group %s: %w", g.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM group_accounts WHERE group_id = ?", g.ID); err != nil {
		return fmt.Errorf("failed to clear group accounts: %w", err)
	}

	for _, accountID := range g.AccountIDs {
		_, err := tx.Exec(`
			INSERT INTO group_accounts (group_id, account_id) VALUES (?, ?)
		`, g.ID, accountID)
		if err != nil {
			return fmt.Errorf("failed to save group account %s: %w", accountID, err)
		}
	}

	return tx.Commit()
}

// AssignModel sets the group's model reference. Callers must validate the
// model first; see Service.AssignModel.
func (r *GroupRepository) AssignModel(groupID, modelID string) error {
	result, err := r.db.Exec(`
		UPDATE rebalancing_groups SET model_id = ? WHERE id = ?
	`, modelID, groupID)
	if err != nil {
		return fmt.Errorf("failed to assign model: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check assignment: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("group %s not found: %w", groupID, sql.ErrNoRows)
	}

	return nil
}

func (r *GroupRepository) getAccounts(groupID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT account_id FROM group_accounts WHERE group_id = ? ORDER BY account_id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}
