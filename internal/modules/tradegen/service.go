package tradegen

import (
	"errors"
	"time"

	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/aristath/sleeveworks/internal/modules/allocation"
	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/aristath/sleeveworks/internal/modules/snapshot"
	"github.com/aristath/sleeveworks/internal/modules/washsale"
	"github.com/rs/zerolog"
)

// Service orchestrates one generation run: it assembles the immutable
// context (holdings, prices, drift, wash-sale blocks) up front, then hands
// it to the pure generator.
type Service struct {
	registry   *registry.Service
	allocation *allocation.Service
	tracker    *washsale.Tracker
	generator  *Generator
	locks      *AccountLocks

	minTradeAmount float64
	harvest        HarvestThresholds

	log zerolog.Logger
}

// NewService creates a new trade generation service
func NewService(
	reg *registry.Service,
	alloc *allocation.Service,
	tracker *washsale.Tracker,
	generator *Generator,
	locks *AccountLocks,
	minTradeAmount float64,
	harvest HarvestThresholds,
	log zerolog.Logger,
) *Service {
	return &Service{
		registry:       reg,
		allocation:     alloc,
		tracker:        tracker,
		generator:      generator,
		locks:          locks,
		minTradeAmount: minTradeAmount,
		harvest:        harvest,
		log:            log.With().Str("service", "tradegen").Logger(),
	}
}

// Preview computes a trade plan for the group. availableCash < 0 means
// "use the group's idle cash from the snapshot". The group's account locks
// are held for the duration so a submission path built on top of this can
// never race another run over the same holdings.
func (s *Service) Preview(groupID string, strategy Strategy, availableCash float64, now time.Time) (*Plan, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	snap, result, err := s.allocation.Calculate(groupID)
	if err != nil {
		// tlhSwap needs holdings and sleeves, not a model.
		if errors.Is(err, allocation.ErrNoModel) && !strategy.NeedsModel() {
			var group *registry.RebalancingGroup
			snap, group, err = s.allocation.Snapshot(groupID)
			if err != nil {
				return nil, err
			}
			return s.generate(group, strategy, availableCash, now, snap, nil)
		}
		return nil, err
	}

	group, err := s.registry.Group(groupID)
	if err != nil {
		return nil, err
	}

	return s.generate(group, strategy, availableCash, now, snap, result)
}

func (s *Service) generate(
	group *registry.RebalancingGroup,
	strategy Strategy,
	availableCash float64,
	now time.Time,
	snap *snapshot.Snapshot,
	result *allocation.Result,
) (*Plan, error) {
	release := s.locks.Acquire(group.AccountIDs)
	defer release()

	sleeves, err := s.registry.Sleeves()
	if err != nil {
		return nil, err
	}
	sleevesByID := make(map[string]registry.Sleeve, len(sleeves))
	for _, sl := range sleeves {
		sleevesByID[sl.ID] = sl
	}

	if availableCash < 0 {
		availableCash = snap.CashValue
	}

	ctx := &GenerateContext{
		Group:          group,
		Snap:           snap,
		Allocation:     result,
		Sleeves:        sleevesByID,
		Blocked:        s.tracker.Blocked(now),
		AvailableCash:  availableCash,
		MinTradeAmount: s.minTradeAmount,
		Harvest:        s.harvest,
		Now:            now,
	}

	return s.generator.Generate(ctx, strategy)
}

// RecordAcceptedSells persists wash-sale blocks for the sell intents of an
// accepted plan. This is the hook the order-submission collaborator calls
// once the user confirms the trades; blocks come into existence on
// acceptance, not on preview.
func (s *Service) RecordAcceptedSells(plan *Plan, snapHoldings []domain.Holding, soldAt time.Time) error {
	costBasis := make(map[string]float64)
	for _, h := range snapHoldings {
		costBasis[h.AccountID+"/"+h.Ticker] = h.CostBasis
	}

	for _, t := range plan.Sells() {
		basis := costBasis[t.AccountID+"/"+t.Ticker]
		if _, err := s.tracker.RecordSale(
			t.Ticker, t.AccountID, float64(t.Quantity), basis, t.EstimatedPrice, soldAt,
		); err != nil {
			return err
		}
	}
	return nil
}
