package services

import (
	"context"

	"vrflottery/internal/models"
)

// RandomnessOracle issues randomness requests. The answer arrives later through
// LotteryService.FulfillRandomWords, never as the return value.
type RandomnessOracle interface {
	RequestRandomWords(ctx context.Context, req models.RandomnessRequest) (uint64, error)
}

// Transferer moves value to a recipient. A returned error means the transfer
// may not have happened; repeating it with the same reference must not pay twice.
type Transferer interface {
	Transfer(ctx context.Context, to string, amount uint64, reference string) error
}

// Notifier delivers lottery events to observers.
type Notifier interface {
	Publish(ctx context.Context, event models.LotteryEvent) error
}

// SettlementRepository keeps the history of settled drawings, keyed by drawing id.
type SettlementRepository interface {
	Add(ctx context.Context, settlement models.Settlement) error
	Get(ctx context.Context, drawingID string) (*models.Settlement, error)
	List(ctx context.Context, limit int) ([]models.Settlement, error)
	Close()
}
