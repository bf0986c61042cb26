package services

import (
	"context"
	"fmt"
	"math/big"

	"vrflottery/internal/models"
)

// payout is the settlement decided for one fulfillment, before any value moved.
type payout struct {
	requestID  uint64
	drawingID  string
	index      int
	winner     string
	entrants   int
	amount     uint64
	randomWord *big.Int
}

// preparePayout selects the winner and marks the round as settling.
// The caller holds s.mu.
func (s *LotteryService) preparePayout(requestID uint64, randomWord *big.Int) payout {
	index, winner := SelectWinner(randomWord, s.ledger.entrants)
	s.settling = true
	return payout{
		requestID:  requestID,
		drawingID:  s.drawingID,
		index:      index,
		winner:     winner,
		entrants:   s.ledger.size(),
		amount:     s.ledger.pooled,
		randomWord: randomWord,
	}
}

// settle pays the pooled stake and then resets the round. The round stays in
// DRAWING with settling set during the transfer, so no other call can enter,
// close or fulfil it before the reset is visible. A failed transfer only
// clears the settling mark.
//
// The drawing id is the transfer reference: a retried fulfillment sends the
// same reference and the wallet pays it at most once.
func (s *LotteryService) settle(ctx context.Context, p payout) (models.Settlement, error) {
	if err := s.wallet.Transfer(ctx, p.winner, p.amount, p.drawingID); err != nil {
		s.mu.Lock()
		s.settling = false
		s.mu.Unlock()
		return models.Settlement{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.recentWinner = p.winner
	s.ledger.reset()
	s.clock.restart(now)
	s.pendingRequestID = 0
	s.drawingID = ""
	s.settling = false
	s.state = models.StateOpen

	return models.Settlement{
		ID:          p.drawingID,
		RequestID:   p.requestID,
		Winner:      p.winner,
		WinnerIndex: p.index,
		Entrants:    p.entrants,
		Amount:      p.amount,
		RandomWord:  p.randomWord.String(),
		SettledAt:   now.Unix(),
	}, nil
}
