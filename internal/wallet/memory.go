package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	ErrTransferRejected = errors.New("recipient rejected the transfer")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrBalanceOverflow  = errors.New("recipient balance would overflow")
	ErrMissingReference = errors.New("transfer reference must not be empty")
	ErrReferenceReused  = errors.New("transfer reference already used for another payout")
)

type payment struct {
	to     string
	amount uint64
}

// MemoryBank is an in-memory value ledger. Transfers credit the recipient once
// per reference; recipients marked with Refuse reject every incoming transfer.
type MemoryBank struct {
	mu       sync.RWMutex
	balances map[string]uint64
	refusing map[string]bool
	paid     map[string]payment
}

// NewMemoryBank returns an empty bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances: make(map[string]uint64),
		refusing: make(map[string]bool),
		paid:     make(map[string]payment),
	}
}

// Transfer credits amount to to. Repeating a completed transfer with the same
// reference succeeds without crediting again.
func (b *MemoryBank) Transfer(_ context.Context, to string, amount uint64, reference string) error {
	if to == "" {
		return ErrInvalidRecipient
	}
	if reference == "" {
		return ErrMissingReference
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.paid[reference]; ok {
		if prev != (payment{to, amount}) {
			return fmt.Errorf("%w: %s", ErrReferenceReused, reference)
		}
		return nil
	}
	if b.refusing[to] {
		return fmt.Errorf("%w: %s", ErrTransferRejected, to)
	}
	if amount > math.MaxUint64-b.balances[to] {
		return ErrBalanceOverflow
	}
	b.balances[to] += amount
	b.paid[reference] = payment{to, amount}
	return nil
}

// BalanceOf returns the total credited to addr.
func (b *MemoryBank) BalanceOf(addr string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[addr]
}

// Refuse makes addr reject incoming transfers until Accept is called.
func (b *MemoryBank) Refuse(addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refusing[addr] = true
}

// Accept undoes Refuse.
func (b *MemoryBank) Accept(addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.refusing, addr)
}
