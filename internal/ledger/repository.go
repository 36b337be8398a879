package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/skillswap/backend/internal/execution"
	"github.com/skillswap/backend/internal/models"
)

// InsertAuditTxFunc enqueues a ledger audit job inside the given transaction.
type InsertAuditTxFunc func(ctx context.Context, tx pgx.Tx, args execution.LedgerAuditArgs) error

// Repository is the PostgreSQL Store. Each atomic unit runs at READ COMMITTED
// and serializes per user through SELECT ... FOR UPDATE on the users row.
type Repository struct {
	pool        *pgxpool.Pool
	insertAudit InsertAuditTxFunc
}

func NewRepository(pool *pgxpool.Pool, insertAudit InsertAuditTxFunc) *Repository {
	return &Repository{pool: pool, insertAudit: insertAudit}
}

var _ Store = (*Repository)(nil)

const txColumns = `id, user_id, type, amount, balance_before, balance_after, status,
	description, payment_method, transaction_ref, metadata, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.LedgerTransaction, error) {
	var t models.LedgerTransaction
	err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.Status,
		&t.Description, &t.PaymentMethod, &t.TransactionRef, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RunAtomic runs fn in one database transaction. Users whose balance changed
// get a ledger audit job enqueued in the same transaction.
func (r *Repository) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback(ctx)

	unit := &pgTx{tx: tx}
	if err := fn(ctx, unit); err != nil {
		return err
	}
	if r.insertAudit != nil && len(unit.touched) > 0 {
		if err := r.insertAudit(ctx, tx, execution.LedgerAuditArgs{UserIDs: unit.touched}); err != nil {
			return fmt.Errorf("enqueue ledger audit: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT credit_balance FROM users WHERE id = $1`, userID).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, models.ErrNotFound
	}
	return bal, err
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LedgerTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+txColumns+`
		FROM time_transactions WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *Repository) CompletedTransactions(ctx context.Context, userID uuid.UUID) ([]*models.LedgerTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+txColumns+`
		FROM time_transactions WHERE user_id = $1 AND status = 'completed'
		ORDER BY seq ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// pgTx implements Tx over a pgx.Tx and records which balances it changed.
type pgTx struct {
	tx      pgx.Tx
	touched []uuid.UUID
}

// LockAccount locks the user row for update. Call within a transaction.
func (t *pgTx) LockAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	var a Account
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, credit_balance FROM users WHERE id = $1 FOR UPDATE
	`, userID).Scan(&a.ID, &a.Name, &a.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AppendTransaction inserts a ledger row. seq is assigned after the row lock
// is held, so it orders a user's rows by commit.
func (t *pgTx) AppendTransaction(ctx context.Context, lt *models.LedgerTransaction) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO time_transactions (id, user_id, type, amount, balance_before, balance_after, status,
			description, payment_method, transaction_ref, metadata)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, lt.ID, lt.UserID, lt.Kind, lt.Amount, lt.BalanceBefore, lt.BalanceAfter, lt.Status,
		lt.Description, lt.PaymentMethod, lt.TransactionRef, lt.Metadata).Scan(&lt.CreatedAt, &lt.UpdatedAt)
}

// UpdateTransaction persists a status change. Only pending rows may be updated.
func (t *pgTx) UpdateTransaction(ctx context.Context, lt *models.LedgerTransaction) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE time_transactions
		SET status = $2, transaction_ref = $3, metadata = $4, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, lt.ID, lt.Status, lt.TransactionRef, lt.Metadata)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s is not pending", models.ErrInvalidTransition, lt.ID)
	}
	return nil
}

// SetBalance sets users.credit_balance. Call after LockAccount in the same tx.
func (t *pgTx) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE users SET credit_balance = $2::numeric, updated_at = now() WHERE id = $1
	`, userID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	t.touched = append(t.touched, userID)
	return nil
}
