package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventLotteryEnter    = "LotteryEnter"
	EventWinnerRequested = "WinnerRequested"
	EventWinnerPicked    = "WinnerPicked"
)

// LotteryEvent is a notification raised alongside a state transition.
// Observers consume them; nothing in the state machine reads them back.
type LotteryEvent interface {
	EventType() string
}

func (LotteryEnter) EventType() string    { return EventLotteryEnter }
func (WinnerRequested) EventType() string { return EventWinnerRequested }
func (WinnerPicked) EventType() string    { return EventWinnerPicked }

// LotteryEnter is raised for every accepted entry.
type LotteryEnter struct {
	Id          string `json:"id"`
	Participant string `json:"participant"`
	Stake       uint64 `json:"stake"`
	Slot        int    `json:"slot"`
	Timestamp   int64  `json:"timestamp"`
}

// WinnerRequested is raised when a round closes and randomness is requested.
type WinnerRequested struct {
	Id        string `json:"id"`
	RequestID uint64 `json:"requestId"`
	DrawingID string `json:"drawingId"`
	Entrants  int    `json:"entrants"`
	Timestamp int64  `json:"timestamp"`
}

// WinnerPicked is raised once the pot has been paid to the winner.
type WinnerPicked struct {
	Id        string `json:"id"`
	RequestID uint64 `json:"requestId"`
	DrawingID string `json:"drawingId"`
	Winner    string `json:"winner"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// NewLotteryEnter builds a LotteryEnter event with a fresh id.
func NewLotteryEnter(participant string, stake uint64, slot int, at time.Time) LotteryEnter {
	return LotteryEnter{
		Id:          uuid.NewString(),
		Participant: participant,
		Stake:       stake,
		Slot:        slot,
		Timestamp:   at.Unix(),
	}
}

// NewWinnerRequested builds a WinnerRequested event with a fresh id.
func NewWinnerRequested(requestID uint64, drawingID string, entrants int, at time.Time) WinnerRequested {
	return WinnerRequested{
		Id:        uuid.NewString(),
		RequestID: requestID,
		DrawingID: drawingID,
		Entrants:  entrants,
		Timestamp: at.Unix(),
	}
}

// NewWinnerPicked builds a WinnerPicked event with a fresh id.
func NewWinnerPicked(
	requestID uint64, drawingID, winner string, amount uint64, at time.Time,
) WinnerPicked {
	return WinnerPicked{
		Id:        uuid.NewString(),
		RequestID: requestID,
		DrawingID: drawingID,
		Winner:    winner,
		Amount:    amount,
		Timestamp: at.Unix(),
	}
}
