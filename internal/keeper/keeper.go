package keeper

import (
	"context"
	"errors"
	"time"

	"vrflottery/internal/models"
	"vrflottery/internal/services"

	"github.com/google/logger"
)

// Upkeeper is the part of the lottery an automation trigger can drive.
type Upkeeper interface {
	CheckUpkeep() bool
	PerformUpkeep(ctx context.Context) (models.WinnerRequested, error)
}

// Scheduler runs a task periodically.
type Scheduler interface {
	Every(interval time.Duration, task func()) error
}

// Keeper polls the upkeep condition and closes the round when it holds.
// It has no privileges: the lottery re-checks the condition on every call.
type Keeper struct {
	target   Upkeeper
	interval time.Duration
}

// New returns a keeper that polls target every interval.
func New(target Upkeeper, interval time.Duration) *Keeper {
	return &Keeper{target: target, interval: interval}
}

// Start registers the polling task on scheduler.
func (k *Keeper) Start(scheduler Scheduler) error {
	return scheduler.Every(k.interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), k.interval)
		defer cancel()
		_, _ = k.RunOnce(ctx)
	})
}

// RunOnce performs a single check-and-perform cycle and reports whether a
// drawing was started.
func (k *Keeper) RunOnce(ctx context.Context) (bool, error) {
	if !k.target.CheckUpkeep() {
		return false, nil
	}

	event, err := k.target.PerformUpkeep(ctx)
	if err != nil {
		// Another trigger closed the round between check and perform.
		if errors.Is(err, services.ErrUpkeepNotNeeded) {
			logger.Infof("keeper: %v", err)
			return false, nil
		}
		logger.Errorf("keeper: perform upkeep failed: %v", err)
		return false, err
	}

	logger.Infof("keeper: started drawing with request %d", event.RequestID)
	return true, nil
}
