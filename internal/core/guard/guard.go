// Package guard is the storage-layer interceptor for ledger writes. Every
// repository implementation classifies each write and calls Check before
// touching the transactions or payouts collections, so the append-only rule
// holds against any caller, including future code that bypasses the
// reconciliation engine.
package guard

import (
	"fmt"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
)

// WriteKind classifies a proposed write against an account's ledger collections.
type WriteKind string

const (
	// AppendTransaction adds exactly one new entry to the transaction log.
	AppendTransaction WriteKind = "APPEND_TRANSACTION"
	// AppendPayout adds exactly one new entry to the payout list.
	AppendPayout WriteKind = "APPEND_PAYOUT"
	// SetTransactionStatus transitions a transaction's status field.
	SetTransactionStatus WriteKind = "SET_TRANSACTION_STATUS"
	// SetPayoutStatus transitions a payout's status field.
	SetPayoutStatus WriteKind = "SET_PAYOUT_STATUS"
	// AttachSourceEvent backfills a missing source event id onto a legacy
	// transaction. The one sanctioned enrichment of an existing entry.
	AttachSourceEvent WriteKind = "ATTACH_SOURCE_EVENT"
	// SetRollups persists the balance calculator's recomputed rollups and
	// running balances. Derived data, not history.
	SetRollups WriteKind = "SET_ROLLUPS"
	// RemoveDuplicateTransaction is the dedup sweep's maintenance path: it may
	// only drop an entry whose financial meaning survives in a kept twin.
	RemoveDuplicateTransaction WriteKind = "REMOVE_DUPLICATE_TRANSACTION"
	// ReplaceTransaction and RemoveTransaction model generic rewrite/delete
	// semantics. Always rejected.
	ReplaceTransaction WriteKind = "REPLACE_TRANSACTION"
	RemoveTransaction  WriteKind = "REMOVE_TRANSACTION"
	// DeleteAccount removes the account document itself.
	DeleteAccount WriteKind = "DELETE_ACCOUNT"
)

// Write describes a proposed mutation for classification.
type Write struct {
	Kind WriteKind

	// Status transition, for SetTransactionStatus / SetPayoutStatus.
	FromStatus string
	ToStatus   string

	// For AttachSourceEvent: the current and proposed source event ids.
	ExistingSourceEventID string
	NewSourceEventID      string

	// For RemoveDuplicateTransaction: whether a surviving entry carries the
	// same financial meaning (same account, dedup key and amount).
	HasSurvivingTwin bool

	// For DeleteAccount.
	TransactionCount int
	PayoutCount      int
}

// CheckAccountDelete rejects deletion of any account with ledger history.
// Ledgers are permanent; this is the first check on every account delete.
func CheckAccountDelete(txnCount, payoutCount int) error {
	if txnCount > 0 || payoutCount > 0 {
		return fmt.Errorf("%w: account has ledger history (%d transactions, %d payouts)",
			apperrors.ErrForbidden, txnCount, payoutCount)
	}
	return nil
}

// Check classifies a write and rejects anything that would rewrite or delete
// ledger history. Appends and whitelisted status transitions pass.
func Check(w Write) error {
	switch w.Kind {
	case AppendTransaction, AppendPayout, SetRollups:
		return nil

	case SetTransactionStatus, SetPayoutStatus:
		return checkStatusTransition(w.FromStatus, w.ToStatus)

	case AttachSourceEvent:
		if w.ExistingSourceEventID != "" {
			return fmt.Errorf("%w: transaction already linked to source event %s",
				apperrors.ErrForbidden, w.ExistingSourceEventID)
		}
		if w.NewSourceEventID == "" {
			return fmt.Errorf("%w: backfill requires a source event id", apperrors.ErrForbidden)
		}
		return nil

	case RemoveDuplicateTransaction:
		if !w.HasSurvivingTwin {
			return fmt.Errorf("%w: refusing to remove a transaction without a surviving duplicate",
				apperrors.ErrForbidden)
		}
		return nil

	case DeleteAccount:
		return CheckAccountDelete(w.TransactionCount, w.PayoutCount)

	case ReplaceTransaction, RemoveTransaction:
		return fmt.Errorf("%w: ledger history is append-only", apperrors.ErrForbidden)
	}

	return fmt.Errorf("%w: unrecognized write kind %q", apperrors.ErrForbidden, w.Kind)
}

func checkStatusTransition(from, to string) error {
	if domain.TransactionStatus(from).IsTerminal() {
		return fmt.Errorf("%w: status %s is terminal", apperrors.ErrForbidden, from)
	}
	switch domain.TransactionStatus(to) {
	case domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled:
		return nil
	}
	return fmt.Errorf("%w: invalid status transition %s -> %s", apperrors.ErrForbidden, from, to)
}
