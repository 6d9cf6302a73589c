package registry

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Service exposes sleeve/model/group reference data to the engine.
type Service struct {
	sleeves *SleeveRepository
	models  *ModelRepository
	groups  *GroupRepository
	log     zerolog.Logger
}

// NewService creates a new registry service
func NewService(
	sleeves *SleeveRepository,
	models *ModelRepository,
	groups *GroupRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		sleeves: sleeves,
		models:  models,
		groups:  groups,
		log:     log.With().Str("service", "registry").Logger(),
	}
}

// Sleeves returns all sleeves.
func (s *Service) Sleeves() ([]Sleeve, error) {
	return s.sleeves.GetAll()
}

// Sleeve returns one sleeve by ID.
func (s *Service) Sleeve(id string) (*Sleeve, error) {
	return s.sleeves.Get(id)
}

// Models returns all models.
func (s *Service) Models() ([]Model, error) {
	return s.models.GetAll()
}

// Group returns one rebalancing group by ID.
func (s *Service) Group(id string) (*RebalancingGroup, error) {
	return s.groups.Get(id)
}

// Groups returns all rebalancing groups.
func (s *Service) Groups() ([]RebalancingGroup, error) {
	return s.groups.GetAll()
}

// GroupModel resolves the model assigned to a group, or nil when the group
// is unassigned.
func (s *Service) GroupModel(group *RebalancingGroup) (*Model, error) {
	if !group.HasModel() {
		return nil, nil
	}
	return s.models.Get(group.ModelID)
}

// MembershipIndex builds the ticker → sleeve lookup used by the snapshot
// builder and trade generator.
func (s *Service) MembershipIndex() (Index, error) {
	sleeves, err := s.sleeves.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to build membership index: %w", err)
	}
	return BuildIndex(sleeves), nil
}

// AssignModel validates the model's weight sum and, only if it passes,
// points the group at it.
func (s *Service) AssignModel(groupID, modelID string) error {
	model, err := s.models.Get(modelID)
	if err != nil {
		return err
	}
	if err := model.Validate(); err != nil {
		return err
	}

	if err := s.groups.AssignModel(groupID, modelID); err != nil {
		return err
	}

	s.log.Info().
		Str("group_id", groupID).
		Str("model_id", modelID).
		Msg("Model assigned to group")

	return nil
}
