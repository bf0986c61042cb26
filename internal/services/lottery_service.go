package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"vrflottery/internal/models"

	"github.com/google/logger"
	"github.com/google/uuid"
)

// Config holds the parameters fixed at initialization.
type Config struct {
	EntranceFee        uint64
	Interval           time.Duration
	CoordinatorAddress string
	Randomness         models.RandomnessRequest
}

// Option customizes a LotteryService at construction.
type Option func(*LotteryService)

// WithNotifier publishes lottery events to n.
func WithNotifier(n Notifier) Option {
	return func(s *LotteryService) { s.notifier = n }
}

// WithRepository records every settled drawing in r.
func WithRepository(r SettlementRepository) Option {
	return func(s *LotteryService) { s.repo = r }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *LotteryService) { s.now = now }
}

// LotteryService owns the round and serializes every operation on it.
// Correctness comes from checking the current state on each call, so any
// entry point may be invoked at any time by anyone. Calls to the oracle and
// the wallet run outside the lock while the round is held in DRAWING.
type LotteryService struct {
	mu       sync.RWMutex
	cfg      Config
	oracle   RandomnessOracle
	wallet   Transferer
	notifier Notifier
	repo     SettlementRepository
	now      func() time.Time

	state            models.LotteryState
	ledger           entryLedger
	clock            roundClock
	pendingRequestID uint64
	drawingID        string
	settling         bool
	recentWinner     string
}

// NewLotteryService creates an OPEN round with no entrants, starting now.
func NewLotteryService(
	cfg Config, oracle RandomnessOracle, wallet Transferer, opts ...Option,
) *LotteryService {
	s := &LotteryService{
		cfg:    cfg,
		oracle: oracle,
		wallet: wallet,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = models.StateOpen
	s.ledger.reset()
	s.clock = roundClock{startedAt: s.now(), interval: cfg.Interval}
	return s
}

// Enter adds one slot for participant to the current round.
func (s *LotteryService) Enter(
	ctx context.Context, participant string, stake uint64,
) (models.LotteryEnter, error) {
	if participant == "" {
		return models.LotteryEnter{}, ErrInvalidParticipant
	}

	s.mu.Lock()
	if stake < s.cfg.EntranceFee {
		s.mu.Unlock()
		return models.LotteryEnter{}, fmt.Errorf(
			"%w: got %d, want at least %d", ErrInsufficientStake, stake, s.cfg.EntranceFee,
		)
	}
	if s.state != models.StateOpen {
		s.mu.Unlock()
		return models.LotteryEnter{}, ErrRoundNotOpen
	}
	slot, err := s.ledger.add(participant, stake)
	if err != nil {
		s.mu.Unlock()
		return models.LotteryEnter{}, err
	}
	event := models.NewLotteryEnter(participant, stake, slot, s.now())
	s.mu.Unlock()

	logger.Infof("participant %s entered slot %d with stake %d", participant, slot, stake)
	s.publish(ctx, event)
	return event, nil
}

// CheckUpkeep reports whether the round may be closed right now.
func (s *LotteryService) CheckUpkeep() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upkeepNeeded(s.now())
}

// upkeepNeeded requires an open, funded, non-empty round whose interval elapsed.
func (s *LotteryService) upkeepNeeded(now time.Time) bool {
	return s.state == models.StateOpen &&
		s.clock.intervalElapsed(now) &&
		s.ledger.pooled > 0 &&
		s.ledger.size() > 0
}

// PerformUpkeep closes the round and asks the oracle for randomness.
// The upkeep condition is evaluated again here because callers are not trusted.
// The round is DRAWING while the oracle is called and goes back to OPEN,
// unchanged, if the request fails.
func (s *LotteryService) PerformUpkeep(ctx context.Context) (models.WinnerRequested, error) {
	s.mu.Lock()
	now := s.now()
	if !s.upkeepNeeded(now) {
		err := fmt.Errorf(
			"%w: state=%s players=%d pooled=%d", ErrUpkeepNotNeeded,
			s.state, s.ledger.size(), s.ledger.pooled,
		)
		s.mu.Unlock()
		return models.WinnerRequested{}, err
	}
	s.state = models.StateDrawing
	entrants := s.ledger.size()
	s.mu.Unlock()

	requestID, err := s.oracle.RequestRandomWords(ctx, s.cfg.Randomness)
	if err == nil && requestID == 0 {
		err = fmt.Errorf("oracle returned an empty request id")
	}

	s.mu.Lock()
	if err != nil {
		s.state = models.StateOpen
		s.mu.Unlock()
		return models.WinnerRequested{}, fmt.Errorf("failed to request randomness: %w", err)
	}
	s.pendingRequestID = requestID
	s.drawingID = uuid.NewString()
	event := models.NewWinnerRequested(requestID, s.drawingID, entrants, now)
	s.mu.Unlock()

	logger.Infof("drawing %s started, randomness request %d for %d entrants", event.DrawingID, requestID, entrants)
	s.publish(ctx, event)
	return event, nil
}

// FulfillRandomWords is the oracle callback. Only the configured coordinator may
// call it and only for the pending request; anything else changes nothing.
func (s *LotteryService) FulfillRandomWords(
	ctx context.Context, from string, requestID uint64, randomWords []*big.Int,
) (models.WinnerPicked, error) {
	if from != s.cfg.CoordinatorAddress {
		return models.WinnerPicked{}, fmt.Errorf("%w: caller %s", ErrOnlyCoordinator, from)
	}

	s.mu.Lock()
	if s.state != models.StateDrawing || s.pendingRequestID == 0 || requestID != s.pendingRequestID {
		s.mu.Unlock()
		return models.WinnerPicked{}, fmt.Errorf("%w: %d", ErrUnknownRequest, requestID)
	}
	if s.settling {
		s.mu.Unlock()
		return models.WinnerPicked{}, fmt.Errorf("%w: request %d", ErrSettlementInProgress, requestID)
	}
	if len(randomWords) == 0 || randomWords[0] == nil {
		s.mu.Unlock()
		return models.WinnerPicked{}, ErrNoRandomWords
	}
	p := s.preparePayout(requestID, randomWords[0])
	s.mu.Unlock()

	settlement, err := s.settle(ctx, p)
	if err != nil {
		logger.Errorf("settlement of request %d failed, round stays in DRAWING: %v", requestID, err)
		return models.WinnerPicked{}, err
	}

	logger.Infof(
		"request %d settled: winner %s (slot %d of %d) received %d",
		requestID, settlement.Winner, settlement.WinnerIndex, settlement.Entrants, settlement.Amount,
	)
	if s.repo != nil {
		if err := s.repo.Add(ctx, settlement); err != nil {
			logger.Errorf("failed to store settlement of request %d: %v", requestID, err)
		}
	}
	event := models.NewWinnerPicked(
		requestID, settlement.ID, settlement.Winner, settlement.Amount, time.Unix(settlement.SettledAt, 0),
	)
	s.publish(ctx, event)
	return event, nil
}

func (s *LotteryService) publish(ctx context.Context, event models.LotteryEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		logger.Warningf("failed to publish %s event: %v", event.EventType(), err)
	}
}

// EntranceFee returns the minimum stake of one entry.
func (s *LotteryService) EntranceFee() uint64 {
	return s.cfg.EntranceFee
}

// TimeInterval returns the minimum length of a round.
func (s *LotteryService) TimeInterval() time.Duration {
	return s.cfg.Interval
}

// State returns the current lifecycle state.
func (s *LotteryService) State() models.LotteryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Player returns the participant occupying slot index.
func (s *LotteryService) Player(index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= s.ledger.size() {
		return "", fmt.Errorf("%w: %d", ErrPlayerIndex, index)
	}
	return s.ledger.entrants[index], nil
}

// Players returns a copy of the entrants in slot order.
func (s *LotteryService) Players() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.ledger.entrants...)
}

// NumPlayers returns the number of occupied slots.
func (s *LotteryService) NumPlayers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.size()
}

// PooledStake returns the sum of the stakes entered this round.
func (s *LotteryService) PooledStake() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.pooled
}

// RecentWinner returns the winner of the last settled round, if any.
func (s *LotteryService) RecentWinner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentWinner
}

// LatestTimestamp returns when the current round started.
func (s *LotteryService) LatestTimestamp() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock.startedAt
}

// PendingRequestID returns the outstanding request, if any.
func (s *LotteryService) PendingRequestID() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingRequestID, s.state == models.StateDrawing && s.pendingRequestID != 0
}

// Snapshot returns a consistent view of the whole round.
func (s *LotteryService) Snapshot() models.RoundView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.RoundView{
		State:            s.state.String(),
		EntranceFee:      s.cfg.EntranceFee,
		IntervalSeconds:  int64(s.cfg.Interval / time.Second),
		Players:          append([]string{}, s.ledger.entrants...),
		PooledStake:      s.ledger.pooled,
		LatestTimestamp:  s.clock.startedAt.Unix(),
		RecentWinner:     s.recentWinner,
		PendingRequestID: s.pendingRequestID,
		DrawingID:        s.drawingID,
		Settling:         s.settling,
		UpkeepNeeded:     s.upkeepNeeded(s.now()),
	}
}

// Winners returns up to limit past settlements, newest first.
func (s *LotteryService) Winners(ctx context.Context, limit int) ([]models.Settlement, error) {
	if s.repo == nil {
		return []models.Settlement{}, nil
	}
	return s.repo.List(ctx, limit)
}
