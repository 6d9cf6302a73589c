package scheduler

import (
	"time"

	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/rs/zerolog"
)

// PriceStalenessJob warns when held securities carry prices older than the
// configured cutoff. The engine still computes partial plans with stale or
// missing prices; this job makes the gap visible to operators.
type PriceStalenessJob struct {
	securities *registry.SecurityRepository
	staleAfter time.Duration
	log        zerolog.Logger
}

// NewPriceStalenessJob creates a new staleness check job
func NewPriceStalenessJob(securities *registry.SecurityRepository, staleAfter time.Duration, log zerolog.Logger) *PriceStalenessJob {
	return &PriceStalenessJob{
		securities: securities,
		staleAfter: staleAfter,
		log:        log.With().Str("job", "price_staleness").Logger(),
	}
}

// Name returns the job name
func (j *PriceStalenessJob) Name() string {
	return "price_staleness"
}

// Run reports stale prices
func (j *PriceStalenessJob) Run() error {
	cutoff := time.Now().UTC().Add(-j.staleAfter)
	stale, err := j.securities.StalePrices(cutoff)
	if err != nil {
		return err
	}

	if len(stale) > 0 {
		j.log.Warn().
			Strs("tickers", stale).
			Time("cutoff", cutoff).
			Msg("Securities with stale prices")
	}
	return nil
}
