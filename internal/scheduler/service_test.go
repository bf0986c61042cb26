package scheduler_test

import (
	"testing"
	"time"

	"vrflottery/internal/scheduler"

	"github.com/stretchr/testify/require"
)

func TestScheduleTaskOnce(t *testing.T) {
	s := scheduler.NewScheduler()
	s.Start()
	defer s.Stop()

	require.Error(t, s.ScheduleTaskOnce(time.Now().Add(-time.Second), func() {}))

	done := make(chan struct{}, 2)
	require.NoError(t, s.ScheduleTaskOnce(time.Now().Add(100*time.Millisecond), func() {
		done <- struct{}{}
	}))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not run")
	}

	select {
	case <-done:
		t.Fatal("task ran twice")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestEvery(t *testing.T) {
	s := scheduler.NewScheduler()
	require.Error(t, s.Every(0, func() {}))

	runs := make(chan struct{}, 10)
	require.NoError(t, s.Every(50*time.Millisecond, func() {
		runs <- struct{}{}
	}))
	s.Start()
	defer s.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-runs:
		case <-time.After(3 * time.Second):
			t.Fatal("periodic task did not run")
		}
	}
}
