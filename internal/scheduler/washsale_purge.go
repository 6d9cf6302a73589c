package scheduler

import (
	"time"

	"github.com/aristath/sleeveworks/internal/modules/washsale"
)

// WashSalePurgeJob removes wash-sale blocks whose 31-day window has lapsed.
// Records must stay durable until then; after, they are dead weight.
type WashSalePurgeJob struct {
	tracker *washsale.Tracker
}

// NewWashSalePurgeJob creates a new purge job
func NewWashSalePurgeJob(tracker *washsale.Tracker) *WashSalePurgeJob {
	return &WashSalePurgeJob{tracker: tracker}
}

// Name returns the job name
func (j *WashSalePurgeJob) Name() string {
	return "washsale_purge"
}

// Run purges lapsed blocks
func (j *WashSalePurgeJob) Run() error {
	_, err := j.tracker.Purge(time.Now().UTC())
	return err
}
