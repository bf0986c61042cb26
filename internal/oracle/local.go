package oracle

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"vrflottery/internal/models"

	"github.com/google/logger"
	"golang.org/x/crypto/sha3"
)

var (
	ErrNonexistentRequest = errors.New("nonexistent request")
	ErrInvalidConsumer    = errors.New("invalid consumer")
	ErrInvalidNumWords    = errors.New("number of random words must be positive")
)

// Consumer receives fulfilled randomness.
type Consumer interface {
	FulfillRandomWords(
		ctx context.Context, from string, requestID uint64, randomWords []*big.Int,
	) (models.WinnerPicked, error)
}

// TaskScheduler runs a task once at a given time.
type TaskScheduler interface {
	ScheduleTaskOnce(at time.Time, task func()) error
}

// LocalCoordinator is an in-process randomness coordinator for development and
// tests. Request ids start at 1 and are never reused. Words are derived from a
// secret seed, so they are only as unpredictable as the seed is private.
type LocalCoordinator struct {
	mu       sync.Mutex
	address  string
	seed     []byte
	lastID   uint64
	consumer Consumer
	requests map[uint64]models.RandomnessRequest

	scheduler    TaskScheduler
	fulfillDelay time.Duration
}

// NewLocalCoordinator returns a coordinator that calls its consumer as address.
func NewLocalCoordinator(address string, seed []byte) *LocalCoordinator {
	return &LocalCoordinator{
		address:  address,
		seed:     append([]byte{}, seed...),
		requests: make(map[uint64]models.RandomnessRequest),
	}
}

// Address is the caller identity presented to the consumer.
func (c *LocalCoordinator) Address() string {
	return c.address
}

// AddConsumer registers the only contract allowed to request randomness.
func (c *LocalCoordinator) AddConsumer(consumer Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumer = consumer
}

// AutoFulfill makes every new request fulfil itself after delay.
func (c *LocalCoordinator) AutoFulfill(scheduler TaskScheduler, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduler = scheduler
	c.fulfillDelay = delay
}

// RequestRandomWords records req and returns the next request id.
func (c *LocalCoordinator) RequestRandomWords(
	_ context.Context, req models.RandomnessRequest,
) (uint64, error) {
	if req.NumWords == 0 {
		return 0, ErrInvalidNumWords
	}

	c.mu.Lock()
	if c.consumer == nil {
		c.mu.Unlock()
		return 0, ErrInvalidConsumer
	}
	c.lastID++
	requestID := c.lastID
	c.requests[requestID] = req
	scheduler, delay := c.scheduler, c.fulfillDelay
	c.mu.Unlock()

	if scheduler != nil && delay > 0 {
		task := func() {
			if _, err := c.FulfillRandomWords(context.Background(), requestID); err != nil {
				logger.Errorf("auto fulfillment of request %d failed: %v", requestID, err)
			}
		}
		if err := scheduler.ScheduleTaskOnce(time.Now().Add(delay), task); err != nil {
			logger.Warningf("failed to schedule fulfillment of request %d: %v", requestID, err)
		}
	}
	return requestID, nil
}

// FulfillRandomWords answers a pending request with words derived from the seed.
func (c *LocalCoordinator) FulfillRandomWords(
	ctx context.Context, requestID uint64,
) (models.WinnerPicked, error) {
	c.mu.Lock()
	req, ok := c.requests[requestID]
	c.mu.Unlock()
	if !ok {
		return models.WinnerPicked{}, fmt.Errorf("%w: %d", ErrNonexistentRequest, requestID)
	}

	words := make([]*big.Int, 0, req.NumWords)
	for i := uint32(0); i < req.NumWords; i++ {
		words = append(words, c.deriveWord(requestID, i))
	}
	return c.deliver(ctx, requestID, words)
}

// FulfillRandomWordsWithOverride answers a pending request with the given words.
func (c *LocalCoordinator) FulfillRandomWordsWithOverride(
	ctx context.Context, requestID uint64, words []*big.Int,
) (models.WinnerPicked, error) {
	c.mu.Lock()
	_, ok := c.requests[requestID]
	c.mu.Unlock()
	if !ok {
		return models.WinnerPicked{}, fmt.Errorf("%w: %d", ErrNonexistentRequest, requestID)
	}
	return c.deliver(ctx, requestID, words)
}

// PendingRequests returns the number of requests not yet accepted by the consumer.
func (c *LocalCoordinator) PendingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// deliver keeps the request when the consumer rejects it, so it can be retried.
func (c *LocalCoordinator) deliver(
	ctx context.Context, requestID uint64, words []*big.Int,
) (models.WinnerPicked, error) {
	c.mu.Lock()
	consumer := c.consumer
	c.mu.Unlock()

	event, err := consumer.FulfillRandomWords(ctx, c.address, requestID, words)
	if err != nil {
		return models.WinnerPicked{}, err
	}

	c.mu.Lock()
	delete(c.requests, requestID)
	c.mu.Unlock()
	return event, nil
}

// deriveWord returns keccak256(seed || requestID || index).
func (c *LocalCoordinator) deriveWord(requestID uint64, index uint32) *big.Int {
	buf := make([]byte, 0, len(c.seed)+12)
	buf = append(buf, c.seed...)
	buf = binary.BigEndian.AppendUint64(buf, requestID)
	buf = binary.BigEndian.AppendUint32(buf, index)

	h := sha3.NewLegacyKeccak256()
	h.Write(buf)
	return new(big.Int).SetBytes(h.Sum(nil))
}
