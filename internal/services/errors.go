package services

import "errors"

var (
	ErrInsufficientStake    = errors.New("not enough stake to enter the lottery")
	ErrRoundNotOpen         = errors.New("lottery round is not open")
	ErrUpkeepNotNeeded      = errors.New("upkeep not needed")
	ErrUnknownRequest       = errors.New("unknown randomness request")
	ErrSettlementInProgress = errors.New("settlement already in progress")
	ErrTransferFailed       = errors.New("transfer to winner failed")
	ErrOnlyCoordinator      = errors.New("only the randomness coordinator can fulfill")
	ErrNoRandomWords        = errors.New("fulfillment carries no random words")
	ErrStakeOverflow        = errors.New("pooled stake would overflow")
	ErrPlayerIndex          = errors.New("player index out of range")
	ErrInvalidParticipant   = errors.New("participant must not be empty")
)
