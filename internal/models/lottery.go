package models

// LotteryState is the lifecycle state of the single drawing round.
type LotteryState int

const (
	// StateOpen accepts entries and can be closed by upkeep.
	StateOpen LotteryState = iota
	// StateDrawing waits for the randomness oracle to answer the pending request.
	StateDrawing
)

func (s LotteryState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateDrawing:
		return "DRAWING"
	default:
		return "UNKNOWN"
	}
}

// RandomnessRequest carries the oracle parameters sent with every request.
// They come from configuration and never change after start-up.
type RandomnessRequest struct {
	KeyHash              string `json:"keyHash"`
	SubscriptionID       uint64 `json:"subscriptionId"`
	RequestConfirmations uint16 `json:"requestConfirmations"`
	CallbackGasLimit     uint32 `json:"callbackGasLimit"`
	NumWords             uint32 `json:"numWords"`
}

// RoundView is a read-only copy of the round state for callers and the API.
type RoundView struct {
	State            string   `json:"state"`
	EntranceFee      uint64   `json:"entranceFee"`
	IntervalSeconds  int64    `json:"intervalSeconds"`
	Players          []string `json:"players"`
	PooledStake      uint64   `json:"pooledStake"`
	LatestTimestamp  int64    `json:"latestTimestamp"`
	RecentWinner     string   `json:"recentWinner,omitempty"`
	PendingRequestID uint64   `json:"pendingRequestId,omitempty"`
	DrawingID        string   `json:"drawingId,omitempty"`
	Settling         bool     `json:"settling,omitempty"`
	UpkeepNeeded     bool     `json:"upkeepNeeded"`
}

// Settlement stores the outcome of one completed drawing, linking the winner
// to the request that selected them. ID is the drawing id, which is also the
// payout reference; request ids restart with a local oracle.
type Settlement struct {
	ID          string `json:"id" badgerhold:"key"`
	RequestID   uint64 `json:"requestId" badgerholdIndex:"RequestID"`
	Winner      string `json:"winner"`
	WinnerIndex int    `json:"winnerIndex"`
	Entrants    int    `json:"entrants"`
	Amount      uint64 `json:"amount"`
	RandomWord  string `json:"randomWord"`
	SettledAt   int64  `json:"settledAt" badgerholdIndex:"SettledAt"`
}
