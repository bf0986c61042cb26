package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Service runs background tasks on a gocron scheduler.
type Service struct {
	scheduler *gocron.Scheduler
}

// NewScheduler returns a stopped scheduler using UTC.
func NewScheduler() *Service {
	svc := gocron.NewScheduler(time.UTC)
	return &Service{svc}
}

// Start runs scheduled tasks in the background.
func (s *Service) Start() {
	s.scheduler.StartAsync()
}

// Stop halts the scheduler; running tasks are not interrupted.
func (s *Service) Stop() {
	s.scheduler.Stop()
}

// Every runs task at a fixed interval. A run is skipped while the previous one is still going.
func (s *Service) Every(interval time.Duration, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	_, err := s.scheduler.Every(interval).SingletonMode().Do(task)
	return err
}

// ScheduleTaskOnce runs task a single time at at, which must be in the future.
func (s *Service) ScheduleTaskOnce(at time.Time, task func()) error {
	delay := time.Until(at)
	if delay <= 0 {
		return fmt.Errorf("cannot schedule task in the past")
	}

	_, err := s.scheduler.Every(delay).WaitForSchedule().LimitRunsTo(1).Do(task)
	return err
}
