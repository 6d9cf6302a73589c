package registry

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// ModelRepository handles model database operations
type ModelRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewModelRepository creates a new model repository
func NewModelRepository(db *sql.DB, log zerolog.Logger) *ModelRepository {
	return &ModelRepository{
		db:  db,
		log: log.With().Str("repo", "model").Logger(),
	}
}

// GetAll returns all models with members, ordered by model ID.
func (r *ModelRepository) GetAll() ([]Model, error) {
	rows, err := r.db.Query("SELECT id, name FROM models ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var models []Model
	for rows.Next() {
		var m Model
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating models: %w", err)
	}

	for i := range models {
		members, err := r.getMembers(models[i].ID)
		if err != nil {
			return nil, err
		}
		models[i].Members = members
	}

	return models, nil
}

// Get returns a single model by ID.
func (r *ModelRepository) Get(id string) (*Model, error) {
	var m Model
	err := r.db.QueryRow("SELECT id, name FROM models WHERE id = ?", id).
		Scan(&m.ID, &m.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s: %w", id, err)
	}

	members, err := r.getMembers(id)
	if err != nil {
		return nil, err
	}
	m.Members = members

	return &m, nil
}

// Save upserts a model and replaces its members. The model is validated
// first: an invalid weight sum never reaches the database.
func (r *ModelRepository) Save(m *Model) error {
	if err := m.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO models (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, m.ID, m.Name)
	if err != nil {
		return fmt.Errorf("failed to save model %s: %w", m.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM model_members WHERE model_id = ?", m.ID); err != nil {
		return fmt.Errorf("failed to clear model members: %w", err)
	}

	for _, mm := range m.Members {
		_, err := tx.Exec(`
			INSERT INTO model_members (model_id, sleeve_id, target_weight_bps)
			VALUES (?, ?, ?)
		`, m.ID, mm.SleeveID, mm.TargetWeightBps)
		if err != nil {
			return fmt.Errorf("failed to save model member %s: %w", mm.SleeveID, err)
		}
	}

	return tx.Commit()
}

func (r *ModelRepository) getMembers(modelID string) ([]ModelMember, error) {
	rows, err := r.db.Query(`
		SELECT sleeve_id, target_weight_bps
		FROM model_members
		WHERE model_id = ?
		ORDER BY sleeve_id
	`, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query model members: %w", err)
	}
	defer rows.Close()

	var members []ModelMember
	for rows.Next() {
		var mm ModelMember
		if err := rows.Scan(&mm.SleeveID, &mm.TargetWeightBps); err != nil {
			return nil, fmt.Errorf("failed to scan model member: %w", err)
		}
		members = append(members, mm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model members: %w", err)
	}

	return members, nil
}
