package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cards and CVVs the simulated gateway always declines.
const (
	DeclineInsufficientFundsCard = "4000000000000002"
	DeclineExpiredCard           = "4000000000000069"
	DeclineCVV                   = "000"
)

const DefaultGatewayDelay = time.Second

var gatewayLimit = decimal.NewFromInt(1000)

// Card is the payment descriptor supplied for a top-up. Only the last four
// digits and the cardholder name are ever persisted.
type Card struct {
	Number         string `json:"card_number"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
	CVV            string `json:"cvv"`
	CardholderName string `json:"cardholder_name"`
}

// Normalized returns the card number without spaces or dashes.
func (c Card) Normalized() string {
	return strings.NewReplacer(" ", "", "-", "").Replace(c.Number)
}

// Last4 returns the last four digits of the normalized number.
func (c Card) Last4() string {
	n := c.Normalized()
	if len(n) <= 4 {
		return n
	}
	return n[len(n)-4:]
}

// Masked is the payment method label stored on ledger rows.
func (c Card) Masked() string {
	return "Card ending in " + c.Last4()
}

// GatewayResult is the outcome of a charge attempt.
type GatewayResult struct {
	Approved       bool
	TransactionRef string
	DeclineReason  string
}

// SimulatedGateway approves every charge except a fixed set of test cards,
// after an artificial processing delay.
type SimulatedGateway struct {
	Delay time.Duration
	now   func() time.Time
}

// NewSimulatedGateway returns a gateway with the given processing delay.
func NewSimulatedGateway(delay time.Duration) *SimulatedGateway {
	return &SimulatedGateway{Delay: delay, now: time.Now}
}

// Charge returns ctx.Err() if the context ends before the delay elapses.
func (g *SimulatedGateway) Charge(ctx context.Context, amount decimal.Decimal, card Card) (GatewayResult, error) {
	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return GatewayResult{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return GatewayResult{}, err
	}

	switch number := card.Normalized(); {
	case number == DeclineInsufficientFundsCard:
		return GatewayResult{DeclineReason: "insufficient funds"}, nil
	case number == DeclineExpiredCard:
		return GatewayResult{DeclineReason: "expired card"}, nil
	case card.CVV == DeclineCVV:
		return GatewayResult{DeclineReason: "invalid CVV"}, nil
	case amount.GreaterThan(gatewayLimit):
		return GatewayResult{DeclineReason: "exceeds limit"}, nil
	}

	now := time.Now
	if g.now != nil {
		now = g.now
	}
	ref := fmt.Sprintf("TXN_%d_%s", now().UnixMilli(), randomSuffix(9))
	return GatewayResult{Approved: true, TransactionRef: ref}, nil
}

const refAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = refAlphabet[rand.IntN(len(refAlphabet))]
	}
	return string(b)
}
