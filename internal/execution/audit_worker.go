package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// LedgerAuditArgs names the users whose balances changed in one ledger unit.
type LedgerAuditArgs struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

func (LedgerAuditArgs) Kind() string { return "ledger_audit" }

// Auditor defines the contract the worker needs to check a user's transaction chain
type Auditor interface {
	VerifyChain(ctx context.Context, userID uuid.UUID) error
}

// ErrChainBroken is returned by the worker when any audited chain fails.
var ErrChainBroken = errors.New("ledger audit failed")

type LedgerAuditWorker struct {
	river.WorkerDefaults[LedgerAuditArgs]
	auditor Auditor
	log     *slog.Logger
}

func NewLedgerAuditWorker(a Auditor, log *slog.Logger) *LedgerAuditWorker {
	if log == nil {
		log = slog.Default()
	}
	return &LedgerAuditWorker{auditor: a, log: log}
}

// Work verifies every user in the job. Inconsistent chains are logged and
// reported together so River records the failure and retries.
func (w *LedgerAuditWorker) Work(ctx context.Context, job *river.Job[LedgerAuditArgs]) error {
	var failed []uuid.UUID
	for _, id := range job.Args.UserIDs {
		if err := w.auditor.VerifyChain(ctx, id); err != nil {
			w.log.Error("ledger audit failed", "user_id", id, "job_id", job.ID, "error", err)
			failed = append(failed, id)
			continue
		}
		w.log.Debug("ledger audit passed", "user_id", id, "job_id", job.ID)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w for %d user(s): %v", ErrChainBroken, len(failed), failed)
	}
	return nil
}
