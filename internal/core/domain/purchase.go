package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSoldOut           = errors.New("sold out")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidEntry      = errors.New("invalid catalog entry")
)

type FailureReason string

const (
	ReasonSoldOut           FailureReason = "SOLD_OUT"
	ReasonInsufficientFunds FailureReason = "INSUFFICIENT_FUNDS"
	ReasonInvalidEntry      FailureReason = "INVALID_ENTRY"
)

func (r FailureReason) sentinel() error {
	switch r {
	case ReasonSoldOut:
		return ErrSoldOut
	case ReasonInsufficientFunds:
		return ErrInsufficientFunds
	default:
		return ErrInvalidEntry
	}
}

// PurchaseFailure is published once per failed purchase attempt.
// Costs are the lines the entry required, not the ones that were short.
type PurchaseFailure struct {
	Reason  FailureReason
	EntryID string
	Costs   []CostLine
}

// PurchaseError is returned by a failed purchase and matches the reason's
// sentinel under errors.Is.
type PurchaseError struct {
	PurchaseFailure
}

func (e *PurchaseError) Error() string {
	if e.EntryID == "" {
		return fmt.Sprintf("purchase failed: %s", e.Reason.sentinel())
	}
	return fmt.Sprintf("purchase %s failed: %s", e.EntryID, e.Reason.sentinel())
}

func (e *PurchaseError) Unwrap() error {
	return e.Reason.sentinel()
}

// Receipt describes a committed purchase.
type Receipt struct {
	ID        string
	RequestID string
	EntryID   string
	Item      ItemID
	Quantity  int
	Costs     []CostLine
	StockLeft int
	CreatedAt time.Time
}
