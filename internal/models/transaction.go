package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind of a ledger row.
type TransactionKind string

const (
	KindTopUp  TransactionKind = "topup"
	KindSpend  TransactionKind = "spend"
	KindEarn   TransactionKind = "earn"
	KindRefund TransactionKind = "refund"
)

// Sign is -1 for kinds that debit the owner and +1 otherwise.
func (k TransactionKind) Sign() int64 {
	if k == KindSpend {
		return -1
	}
	return 1
}

// Apply returns the balance after applying amount in this kind's direction.
func (k TransactionKind) Apply(before, amount decimal.Decimal) decimal.Decimal {
	return before.Add(amount.Mul(decimal.NewFromInt(k.Sign())))
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

type LedgerTransaction struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	Kind           TransactionKind   `json:"type"`
	Amount         decimal.Decimal   `json:"amount"`
	BalanceBefore  decimal.Decimal   `json:"balance_before"`
	BalanceAfter   decimal.Decimal   `json:"balance_after"`
	Status         TransactionStatus `json:"status"`
	Description    string            `json:"description"`
	PaymentMethod  *string           `json:"payment_method,omitempty"`
	TransactionRef *string           `json:"transaction_ref,omitempty"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Resolve moves a pending row to completed or failed. Any other transition
// is rejected.
func (t *LedgerTransaction) Resolve(to TransactionStatus) error {
	if t.Status != StatusPending || (to != StatusCompleted && to != StatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	return nil
}

// Consistent reports whether BalanceAfter = BalanceBefore + sign*Amount.
func (t *LedgerTransaction) Consistent() bool {
	return t.Kind.Apply(t.BalanceBefore, t.Amount).Equal(t.BalanceAfter)
}
