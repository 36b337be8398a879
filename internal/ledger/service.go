package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/services"
)

// MaxTopUp is the largest amount a single top-up may add.
var MaxTopUp = decimal.NewFromInt(1000)

const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 200

	DefaultGatewayTimeout = 5 * time.Second
	DefaultStoreTimeout   = 10 * time.Second
)

// AmountScale is the number of decimal places balances are stored with.
const AmountScale = 2

// wholeCents reports whether amount needs no rounding to fit the stored scale.
func wholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(AmountScale))
}

// Account is a user row locked for the duration of an atomic unit.
type Account struct {
	ID      uuid.UUID
	Name    string
	Balance decimal.Decimal
}

// Tx is the write surface available inside Store.RunAtomic.
type Tx interface {
	// LockAccount takes a row lock on the user; models.ErrNotFound if absent.
	LockAccount(ctx context.Context, userID uuid.UUID) (*Account, error)
	AppendTransaction(ctx context.Context, t *models.LedgerTransaction) error
	UpdateTransaction(ctx context.Context, t *models.LedgerTransaction) error
	SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error
}

// Store owns balances and the transaction log. RunAtomic commits when fn
// returns nil and rolls back every write otherwise.
type Store interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LedgerTransaction, error)
	// CompletedTransactions returns completed rows oldest first.
	CompletedTransactions(ctx context.Context, userID uuid.UUID) ([]*models.LedgerTransaction, error)
}

// Gateway charges a card.
type Gateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, card services.Card) (services.GatewayResult, error)
}

type TopUpRequest struct {
	UserID uuid.UUID
	Amount decimal.Decimal
	Card   services.Card
}

type SpendRequest struct {
	FromUserID  uuid.UUID
	ToUserID    uuid.UUID
	Amount      decimal.Decimal
	Description string
	SkillName   *string
}

type Config struct {
	GatewayTimeout time.Duration
	StoreTimeout   time.Duration
}

type Service interface {
	TopUp(ctx context.Context, req TopUpRequest) (*models.LedgerTransaction, error)
	Spend(ctx context.Context, req SpendRequest) ([]*models.LedgerTransaction, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LedgerTransaction, error)
	VerifyChain(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store   Store
	gateway Gateway
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

func NewService(store Store, gateway Gateway, cfg Config, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &service{store: store, gateway: gateway, cfg: cfg, log: log, now: time.Now}
}

var _ Service = (*service)(nil)

func validateCard(c services.Card) error {
	digits := c.Normalized()
	if len(digits) < 12 || len(digits) > 19 {
		return fmt.Errorf("%w: card number must have 12 to 19 digits", models.ErrInvalidTransfer)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: card number must be numeric", models.ErrInvalidTransfer)
		}
	}
	if c.ExpiryMonth < 1 || c.ExpiryMonth > 12 || c.ExpiryYear <= 0 {
		return fmt.Errorf("%w: invalid card expiry", models.ErrInvalidTransfer)
	}
	if strings.TrimSpace(c.CVV) == "" || strings.TrimSpace(c.CardholderName) == "" {
		return fmt.Errorf("%w: cvv and cardholder name are required", models.ErrInvalidTransfer)
	}
	return nil
}

// classify keeps taxonomy errors and reports anything else from the store
// as ErrStoreUnavailable.
func classify(err error) error {
	for _, known := range []error{
		models.ErrNotFound,
		models.ErrInvalidTransfer,
		models.ErrInsufficientFunds,
		models.ErrInvalidTransition,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return models.StoreError(err)
}

func (s *service) charge(ctx context.Context, amount decimal.Decimal, card services.Card) (services.GatewayResult, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	res, err := s.gateway.Charge(gctx, amount, card)
	if err != nil {
		// Only the gateway's own deadline counts as a decline; a cancelled
		// caller aborts the whole unit.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return services.GatewayResult{DeclineReason: "gateway timeout"}, nil
		}
		return services.GatewayResult{}, fmt.Errorf("charge card: %w", err)
	}
	return res, nil
}

// TopUp charges the card and credits the user. A declined charge still
// commits a failed row and returns *models.PaymentDeclinedError.
func (s *service) TopUp(ctx context.Context, req TopUpRequest) (*models.LedgerTransaction, error) {
	if !req.Amount.IsPositive() || req.Amount.GreaterThan(MaxTopUp) {
		return nil, fmt.Errorf("%w: top-up amount must be greater than 0 and at most %s", models.ErrInvalidTransfer, MaxTopUp)
	}
	if !wholeCents(req.Amount) {
		return nil, fmt.Errorf("%w: amount may have at most %d decimal places", models.ErrInvalidTransfer, AmountScale)
	}
	if err := validateCard(req.Card); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var (
		row      *models.LedgerTransaction
		declined *models.PaymentDeclinedError
	)
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx Tx) error {
		acct, err := tx.LockAccount(ctx, req.UserID)
		if err != nil {
			return err
		}
		method := req.Card.Masked()
		now := s.now()
		row = &models.LedgerTransaction{
			ID:            uuid.New(),
			UserID:        acct.ID,
			Kind:          models.KindTopUp,
			Amount:        req.Amount,
			BalanceBefore: acct.Balance,
			BalanceAfter:  models.KindTopUp.Apply(acct.Balance, req.Amount),
			Status:        models.StatusPending,
			Description:   "Credit top-up via card ending in " + req.Card.Last4(),
			PaymentMethod: &method,
			Metadata: map[string]any{
				"cardLast4":      req.Card.Last4(),
				"cardholderName": req.Card.CardholderName,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.AppendTransaction(ctx, row); err != nil {
			return fmt.Errorf("append top-up: %w", err)
		}

		res, err := s.charge(ctx, req.Amount, req.Card)
		if err != nil {
			return err
		}
		if !res.Approved {
			if err := row.Resolve(models.StatusFailed); err != nil {
				return err
			}
			row.Metadata["error"] = res.DeclineReason
			row.UpdatedAt = s.now()
			if err := tx.UpdateTransaction(ctx, row); err != nil {
				return fmt.Errorf("fail top-up: %w", err)
			}
			declined = &models.PaymentDeclinedError{Reason: res.DeclineReason}
			return nil
		}

		if err := tx.SetBalance(ctx, acct.ID, row.BalanceAfter); err != nil {
			return fmt.Errorf("set balance: %w", err)
		}
		if err := row.Resolve(models.StatusCompleted); err != nil {
			return err
		}
		ref := res.TransactionRef
		row.TransactionRef = &ref
		row.UpdatedAt = s.now()
		if err := tx.UpdateTransaction(ctx, row); err != nil {
			return fmt.Errorf("complete top-up: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if declined != nil {
		s.log.Warn("top-up declined", "user_id", req.UserID, "amount", req.Amount.String(), "reason", declined.Reason, "transaction_id", row.ID)
		return row, declined
	}
	s.log.Info("top-up completed", "user_id", req.UserID, "amount", req.Amount.String(), "transaction_id", row.ID)
	return row, nil
}

// Spend moves credits from one user to another as a completed spend/earn pair.
func (s *service) Spend(ctx context.Context, req SpendRequest) ([]*models.LedgerTransaction, error) {
	if req.FromUserID == req.ToUserID {
		return nil, fmt.Errorf("%w: cannot transfer credits to yourself", models.ErrInvalidTransfer)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than 0", models.ErrInvalidTransfer)
	}
	if !wholeCents(req.Amount) {
		return nil, fmt.Errorf("%w: amount may have at most %d decimal places", models.ErrInvalidTransfer, AmountScale)
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", models.ErrInvalidTransfer)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var rows []*models.LedgerTransaction
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx Tx) error {
		// Lock both accounts in deterministic order (by UUID) to avoid deadlock.
		ids := []uuid.UUID{req.FromUserID, req.ToUserID}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		locked := make(map[uuid.UUID]*Account, 2)
		for _, id := range ids {
			acct, err := tx.LockAccount(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = acct
		}
		sender, recipient := locked[req.FromUserID], locked[req.ToUserID]
		if sender.Balance.LessThan(req.Amount) {
			return fmt.Errorf("%w: balance %s, requested %s", models.ErrInsufficientFunds, sender.Balance, req.Amount)
		}

		now := s.now()
		spend := &models.LedgerTransaction{
			ID:            uuid.New(),
			UserID:        sender.ID,
			Kind:          models.KindSpend,
			Amount:        req.Amount,
			BalanceBefore: sender.Balance,
			BalanceAfter:  models.KindSpend.Apply(sender.Balance, req.Amount),
			Status:        models.StatusCompleted,
			Description:   req.Description,
			Metadata: map[string]any{
				"recipientId":   recipient.ID.String(),
				"recipientName": recipient.Name,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		earn := &models.LedgerTransaction{
			ID:            uuid.New(),
			UserID:        recipient.ID,
			Kind:          models.KindEarn,
			Amount:        req.Amount,
			BalanceBefore: recipient.Balance,
			BalanceAfter:  models.KindEarn.Apply(recipient.Balance, req.Amount),
			Status:        models.StatusCompleted,
			Description:   req.Description,
			Metadata: map[string]any{
				"senderId":   sender.ID.String(),
				"senderName": sender.Name,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.SkillName != nil {
			spend.Metadata["skillName"] = *req.SkillName
			earn.Metadata["skillName"] = *req.SkillName
		}

		for _, t := range []*models.LedgerTransaction{spend, earn} {
			if err := tx.AppendTransaction(ctx, t); err != nil {
				return fmt.Errorf("append %s: %w", t.Kind, err)
			}
			if err := tx.SetBalance(ctx, t.UserID, t.BalanceAfter); err != nil {
				return fmt.Errorf("set balance: %w", err)
			}
		}
		rows = []*models.LedgerTransaction{spend, earn}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	s.log.Info("credits transferred", "from_user_id", req.FromUserID, "to_user_id", req.ToUserID, "amount", req.Amount.String())
	return rows, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	bal, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return decimal.Zero, classify(err)
	}
	return bal, nil
}

// GetTransactions returns the user's rows newest first.
func (s *service) GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LedgerTransaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if limit > MaxTransactionLimit {
		limit = MaxTransactionLimit
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if _, err := s.store.GetBalance(ctx, userID); err != nil {
		return nil, classify(err)
	}
	list, err := s.store.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, classify(err)
	}
	if list == nil {
		list = []*models.LedgerTransaction{}
	}
	return list, nil
}

// VerifyChain audits a user's completed rows: each must satisfy the sign
// rule, chain onto the previous one, and the newest must match the balance.
func (s *service) VerifyChain(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return classify(err)
	}
	rows, err := s.store.CompletedTransactions(ctx, userID)
	if err != nil {
		return classify(err)
	}
	for i, t := range rows {
		if !t.Consistent() {
			return fmt.Errorf("%w: transaction %s %s %s: %s -> %s", models.ErrLedgerInconsistent, t.ID, t.Kind, t.Amount, t.BalanceBefore, t.BalanceAfter)
		}
		if i > 0 && !rows[i-1].BalanceAfter.Equal(t.BalanceBefore) {
			return fmt.Errorf("%w: transaction %s starts at %s, previous ended at %s", models.ErrLedgerInconsistent, t.ID, t.BalanceBefore, rows[i-1].BalanceAfter)
		}
	}
	if n := len(rows); n > 0 && !rows[n-1].BalanceAfter.Equal(balance) {
		return fmt.Errorf("%w: balance %s, last transaction ended at %s", models.ErrLedgerInconsistent, balance, rows[n-1].BalanceAfter)
	}
	return nil
}
