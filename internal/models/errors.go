package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the matching and ledger services. Callers branch
// with errors.Is; PaymentDeclinedError also matches ErrPaymentDeclined.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransfer    = errors.New("invalid transfer")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrDuplicateListing   = errors.New("skill listing already exists")
	ErrInvalidTransition  = errors.New("invalid transaction status transition")
	ErrLedgerInconsistent = errors.New("ledger chain inconsistent")
)

// PaymentDeclinedError carries the gateway's decline reason.
type PaymentDeclinedError struct {
	Reason string
}

func (e *PaymentDeclinedError) Error() string {
	return "payment declined: " + e.Reason
}

func (e *PaymentDeclinedError) Is(target error) bool {
	return target == ErrPaymentDeclined
}

// StoreError passes ErrNotFound through and classifies anything else as
// ErrStoreUnavailable.
func StoreError(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
