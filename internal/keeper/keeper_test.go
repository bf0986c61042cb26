package keeper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vrflottery/internal/keeper"
	"vrflottery/internal/models"
	"vrflottery/internal/services"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockedUpkeeper struct {
	mock.Mock
}

func (m *mockedUpkeeper) CheckUpkeep() bool {
	return m.Called().Bool(0)
}

func (m *mockedUpkeeper) PerformUpkeep(ctx context.Context) (models.WinnerRequested, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.WinnerRequested), args.Error(1)
}

type recordingScheduler struct {
	interval time.Duration
	task     func()
}

func (s *recordingScheduler) Every(interval time.Duration, task func()) error {
	s.interval = interval
	s.task = task
	return nil
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	oracleErr := errors.New("oracle unavailable")

	testCases := []struct {
		description string
		needed      bool
		performErr  error
		started     bool
		expectErr   error
	}{
		{
			description: "nothing to do",
			needed:      false,
		},
		{
			description: "starts a drawing",
			needed:      true,
			started:     true,
		},
		{
			description: "lost the race to another trigger",
			needed:      true,
			performErr:  fmt.Errorf("%w: state=DRAWING", services.ErrUpkeepNotNeeded),
		},
		{
			description: "oracle failure is reported",
			needed:      true,
			performErr:  oracleErr,
			expectErr:   oracleErr,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			m := &mockedUpkeeper{}
			m.On("CheckUpkeep").Return(tc.needed)
			if tc.needed {
				m.On("PerformUpkeep", mock.Anything).
					Return(models.WinnerRequested{RequestID: 1}, tc.performErr).Once()
			}

			started, err := keeper.New(m, time.Second).RunOnce(ctx)
			require.Equal(t, tc.started, started)
			if tc.expectErr != nil {
				require.ErrorIs(t, err, tc.expectErr)
			} else {
				require.NoError(t, err)
			}
			if !tc.needed {
				m.AssertNotCalled(t, "PerformUpkeep", mock.Anything)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestStart(t *testing.T) {
	m := &mockedUpkeeper{}
	m.On("CheckUpkeep").Return(true).Once()
	m.On("PerformUpkeep", mock.Anything).Return(models.WinnerRequested{RequestID: 4}, nil).Once()

	s := &recordingScheduler{}
	require.NoError(t, keeper.New(m, 10*time.Second).Start(s))
	require.Equal(t, 10*time.Second, s.interval)
	require.NotNil(t, s.task)

	s.task()
	m.AssertExpectations(t)
}
