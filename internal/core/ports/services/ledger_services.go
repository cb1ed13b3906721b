// Package services defines the service facades exposed to external callers
// (HTTP layers, schedulers and other collaborators live outside this module).
package services

import (
	"context"

	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/dto"
)

// LedgerSvcFacade is the account-facing surface of the ledger.
type LedgerSvcFacade interface {
	// GetOrCreateAccount lazily creates the subject's ledger on first
	// reference and always returns a freshly recomputed snapshot.
	GetOrCreateAccount(ctx context.Context, subjectID, name, contactEmail, companyID string) (*domain.Account, error)
	// GetAccountSummary returns the read model for a subject: rollups plus the
	// full transaction and payout lists.
	GetAccountSummary(ctx context.Context, subjectID string) (*dto.AccountSummary, error)
	// AddPenalty appends a completed penalty entry and recomputes the balance.
	AddPenalty(ctx context.Context, subjectID string, req dto.AddPenaltyRequest, userID string) (*domain.Transaction, error)
	// AcknowledgementDocument returns the data an external renderer needs to
	// produce a payout acknowledgement.
	AcknowledgementDocument(ctx context.Context, subjectID, payoutID string) (*dto.AcknowledgementDocument, error)
}

// PayoutSvcFacade drives the payout workflow.
type PayoutSvcFacade interface {
	// CreatePayout validates the amount against a freshly recomputed running
	// balance and creates a pending payout with its mirrored transaction.
	CreatePayout(ctx context.Context, subjectID string, req dto.CreatePayoutRequest, userID string) (*domain.Payout, error)
	// UpdatePayoutStatus transitions a pending payout to a terminal state and
	// mirrors the status onto the linked transaction.
	UpdatePayoutStatus(ctx context.Context, subjectID, payoutID string, req dto.UpdatePayoutStatusRequest, userID string) (*domain.Payout, error)
}

// ReconciliationSvcFacade translates source payments into ledger entries.
type ReconciliationSvcFacade interface {
	// SyncOne idempotently posts every positive lane of a single source event,
	// creating recipient accounts lazily.
	SyncOne(ctx context.Context, event domain.SourceEvent) error
	// SyncAll runs a full backfill and dedup pass for one subject.
	SyncAll(ctx context.Context, subjectID string) error
	// SyncCompany fans SyncAll out over every subject of a company.
	SyncCompany(ctx context.Context, companyID string) error
}
