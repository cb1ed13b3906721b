// Package repositories defines the storage contracts for the ledger. The
// interfaces deliberately expose only appends, whitelisted status transitions
// and derived-data persistence; there is no generic update or delete of
// ledger history.
package repositories

import (
	"context"
	"time"

	"github.com/estateops/agentledger/internal/core/domain"
)

// AccountReader provides read access to subject ledgers.
type AccountReader interface {
	// FindBySubjectID returns the account for a subject, or apperrors.ErrNotFound.
	FindBySubjectID(ctx context.Context, subjectID string) (*domain.Account, error)
	// FindBySubjectIDs returns the accounts for the given subjects, keyed by subject id.
	FindBySubjectIDs(ctx context.Context, subjectIDs []string) (map[string]domain.Account, error)
	// ListSubjectIDsByCompany returns every subject with an account under a company.
	ListSubjectIDsByCompany(ctx context.Context, companyID string) ([]string, error)
}

// AccountWriter provides the guarded write operations on subject ledgers.
type AccountWriter interface {
	// Save creates a new account. Returns apperrors.ErrDuplicate when the
	// subject already has one.
	Save(ctx context.Context, account domain.Account) error
	// SaveRollups persists the balance calculator's recomputed rollups.
	SaveRollups(ctx context.Context, account domain.Account) error
	// Delete removes an account. Rejected with apperrors.ErrForbidden when the
	// account has any transaction or payout history.
	Delete(ctx context.Context, accountID string) error
}

// AccountRepository combines account reads and guarded writes.
type AccountRepository interface {
	AccountReader
	AccountWriter
}

// TransactionRepository is the append-only transaction log for an account.
type TransactionRepository interface {
	// AppendTransaction appends one new entry. A uniqueness conflict on
	// (account, sourceEventID, role) or (account, reference) surfaces as
	// apperrors.ErrDuplicate.
	AppendTransaction(ctx context.Context, txn domain.Transaction) error
	// AppendWithRollups appends one entry and persists the recomputed account
	// rollups atomically, so a mid-failure never leaves one without the other.
	AppendWithRollups(ctx context.Context, txn domain.Transaction, account domain.Account) error
	// ListByAccountID returns the full transaction log, ordered by date.
	ListByAccountID(ctx context.Context, accountID string) ([]domain.Transaction, error)
	// UpdateStatus transitions a transaction's status. Terminal states never
	// transition again.
	UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, updatedBy string, now time.Time) error
	// UpdateStatusByReference transitions the transaction linked to a payout
	// via its reference number.
	UpdateStatusByReference(ctx context.Context, accountID, reference string, status domain.TransactionStatus, updatedBy string, now time.Time) error
	// AttachSourceEvent backfills a missing source event id, role and
	// normalized reference onto a legacy transaction.
	AttachSourceEvent(ctx context.Context, transactionID, sourceEventID, reference string, role domain.Role, updatedBy string, now time.Time) error
	// SaveRunningBalances persists recomputed per-transaction running balances.
	SaveRunningBalances(ctx context.Context, txns []domain.Transaction) error
	// RemoveDuplicates drops exact-duplicate entries identified by the dedup
	// sweep. Each removal must name a surviving twin or it is rejected.
	RemoveDuplicates(ctx context.Context, removals []DuplicateRemoval) error
}

// DuplicateRemoval names a transaction to drop and the surviving entry that
// carries the same financial meaning.
type DuplicateRemoval struct {
	TransactionID string
	SurvivorID    string
}

// PayoutRepository stores disbursement records.
type PayoutRepository interface {
	AppendPayout(ctx context.Context, payout domain.Payout) error
	ListByAccountID(ctx context.Context, accountID string) ([]domain.Payout, error)
	// FindByID returns a payout, or apperrors.ErrNotFound.
	FindByID(ctx context.Context, accountID, payoutID string) (*domain.Payout, error)
	// UpdateStatus transitions a payout to a terminal state. An empty notes
	// value leaves the stored notes untouched.
	UpdateStatus(ctx context.Context, payoutID string, status domain.PayoutStatus, processedBy string, processedAt *time.Time, notes string, now time.Time) error
}

// SourceEventRepository reads the externally owned source payments. Lookups
// are context-bounded; the reconciliation engine treats failures as
// skip-and-log.
type SourceEventRepository interface {
	FindByID(ctx context.Context, eventID string) (*domain.SourceEvent, error)
	FindByRecipientID(ctx context.Context, recipientID string) ([]domain.SourceEvent, error)
	ListRecipientIDsByCompany(ctx context.Context, companyID string) ([]string, error)
}
