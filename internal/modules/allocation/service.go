package allocation

import (
	"fmt"

	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/aristath/sleeveworks/internal/modules/snapshot"
	"github.com/rs/zerolog"
)

// Service assembles the immutable snapshot for a group and runs the
// calculator over it. All I/O happens here, up front; the calculator and
// everything downstream of it stay pure.
type Service struct {
	registry   *registry.Service
	securities *registry.SecurityRepository
	holdings   *snapshot.HoldingsRepository
	builder    *snapshot.Builder
	calc       *Calculator
	log        zerolog.Logger
}

// NewService creates a new allocation service
func NewService(
	reg *registry.Service,
	securities *registry.SecurityRepository,
	holdings *snapshot.HoldingsRepository,
	builder *snapshot.Builder,
	calc *Calculator,
	log zerolog.Logger,
) *Service {
	return &Service{
		registry:   reg,
		securities: securities,
		holdings:   holdings,
		builder:    builder,
		calc:       calc,
		log:        log.With().Str("service", "allocation").Logger(),
	}
}

// Snapshot fetches holdings, prices, and sleeve membership for the group
// and builds the immutable snapshot.
func (s *Service) Snapshot(groupID string) (*snapshot.Snapshot, *registry.RebalancingGroup, error) {
	group, err := s.registry.Group(groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load group: %w", err)
	}

	holdings, err := s.holdings.GetByAccounts(group.AccountIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	prices, err := s.securities.GetPrices()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prices: %w", err)
	}

	index, err := s.registry.MembershipIndex()
	if err != nil {
		return nil, nil, err
	}

	return s.builder.Build(group, holdings, prices, index), group, nil
}

// Calculate builds the snapshot and computes drift against the group's
// assigned model.
func (s *Service) Calculate(groupID string) (*snapshot.Snapshot, *Result, error) {
	snap, group, err := s.Snapshot(groupID)
	if err != nil {
		return nil, nil, err
	}

	model, err := s.registry.GroupModel(group)
	if err != nil {
		return nil, nil, err
	}
	if model == nil {
		return nil, nil, ErrNoModel
	}

	result, err := s.calc.Calculate(snap, model)
	if err != nil {
		return nil, nil, err
	}

	return snap, result, nil
}

// Summary produces the presentation projection for a group.
func (s *Service) Summary(groupID string) (*Summary, error) {
	snap, result, err := s.Calculate(groupID)
	if err != nil {
		return nil, err
	}
	return BuildSummary(snap, result), nil
}
