package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
	portssvc "github.com/estateops/agentledger/internal/core/ports/services"
	"github.com/estateops/agentledger/internal/dto"
	"github.com/estateops/agentledger/internal/utils"
	"github.com/estateops/agentledger/internal/utils/accounting"
	"github.com/estateops/agentledger/internal/utils/money"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// payoutServiceImpl implements the PayoutSvcFacade interface
type payoutServiceImpl struct {
	BaseService
	accountRepo portsrepo.AccountRepository
	txnRepo     portsrepo.TransactionRepository
	payoutRepo  portsrepo.PayoutRepository
	validate    *validator.Validate
}

// NewPayoutService creates the payout workflow service.
func NewPayoutService(accountRepo portsrepo.AccountRepository, txnRepo portsrepo.TransactionRepository, payoutRepo portsrepo.PayoutRepository) portssvc.PayoutSvcFacade {
	return &payoutServiceImpl{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		payoutRepo:  payoutRepo,
		validate:    validator.New(),
	}
}

var _ portssvc.PayoutSvcFacade = (*payoutServiceImpl)(nil)

// CreatePayout disburses against the available balance. The balance is
// recomputed from the transaction log immediately before the check; the
// persisted rollups are never trusted for this decision.
func (s *payoutServiceImpl) CreatePayout(ctx context.Context, subjectID string, req dto.CreatePayoutRequest, userID string) (*domain.Payout, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payout amount must be positive", apperrors.ErrValidation)
	}

	account, err := s.accountRepo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	txns, err := s.txnRepo.ListByAccountID(ctx, account.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for account %s: %w", account.AccountID, err)
	}
	accounting.Recompute(account, txns)

	// Pending payouts have not moved the balance yet but their amounts are
	// spoken for; without the reservation two concurrent payouts could both
	// pass the check.
	available := money.ToMinorUnits(account.RunningBalance)
	for _, t := range txns {
		if t.Type == domain.TypePayout && t.Status == domain.StatusPending {
			available -= money.ToMinorUnits(t.Amount)
		}
	}
	if money.ToMinorUnits(req.Amount) > available {
		s.LogInfo(ctx, "Payout rejected for insufficient balance",
			slog.String("subject_id", subjectID),
			slog.String("requested", req.Amount.String()),
			slog.String("available", money.FromMinorUnits(available).String()))
		return nil, apperrors.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	reference, err := utils.GeneratePayoutReference(now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate payout reference: %w", err)
	}

	audit := domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     userID,
		LastUpdatedAt: now,
		LastUpdatedBy: userID,
	}
	payout := domain.Payout{
		PayoutID:        uuid.NewString(),
		AccountID:       account.AccountID,
		Amount:          req.Amount,
		Date:            now,
		PaymentMethod:   req.PaymentMethod,
		RecipientID:     req.RecipientID,
		RecipientName:   req.RecipientName,
		ReferenceNumber: reference,
		Status:          domain.PayoutPending,
		Notes:           req.Notes,
		AuditFields:     audit,
	}

	if err := s.payoutRepo.AppendPayout(ctx, payout); err != nil {
		s.LogError(ctx, err, "Failed to create payout",
			slog.String("subject_id", subjectID))
		return nil, err
	}

	// Mirror the payout as a pending ledger entry sharing the reference
	// number. Pending entries do not move the balance until completed.
	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		AccountID:     account.AccountID,
		Type:          domain.TypePayout,
		Amount:        req.Amount,
		Date:          now,
		Status:        domain.StatusPending,
		Reference:     reference,
		Description:   fmt.Sprintf("Payout to %s via %s", req.RecipientName, req.PaymentMethod),
		Notes:         req.Notes,
		AuditFields:   audit,
	}

	projected := append(txns, txn)
	accounting.Recompute(account, projected)
	account.LastUpdatedAt = now
	account.LastUpdatedBy = userID
	for _, p := range projected {
		if p.TransactionID == txn.TransactionID {
			txn.RunningBalance = p.RunningBalance
			break
		}
	}

	if err := s.txnRepo.AppendWithRollups(ctx, txn, *account); err != nil {
		s.LogError(ctx, err, "Failed to record payout transaction",
			slog.String("payout_id", payout.PayoutID))
		return nil, err
	}

	s.LogInfo(ctx, "Payout created",
		slog.String("subject_id", subjectID),
		slog.String("payout_id", payout.PayoutID),
		slog.String("reference_number", reference),
		slog.String("amount", req.Amount.String()))
	return &payout, nil
}

// UpdatePayoutStatus transitions a pending payout to a terminal state and
// mirrors the status onto the linked transaction. Terminal payouts never
// transition again.
func (s *payoutServiceImpl) UpdatePayoutStatus(ctx context.Context, subjectID, payoutID string, req dto.UpdatePayoutStatusRequest, userID string) (*domain.Payout, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	account, err := s.accountRepo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	payout, err := s.payoutRepo.FindByID(ctx, account.AccountID, payoutID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("payout %s not found for subject %s", payoutID, subjectID))
		}
		return nil, err
	}

	now := time.Now().UTC()
	var processedAt *time.Time
	if req.Status == domain.PayoutCompleted {
		processedAt = &now
	}

	if err := s.payoutRepo.UpdateStatus(ctx, payoutID, req.Status, userID, processedAt, req.Notes, now); err != nil {
		s.LogError(ctx, err, "Failed to update payout status",
			slog.String("payout_id", payoutID),
			slog.String("status", string(req.Status)))
		return nil, err
	}

	if err := s.txnRepo.UpdateStatusByReference(ctx, account.AccountID, payout.ReferenceNumber, domain.TransactionStatus(req.Status), userID, now); err != nil {
		// The payout has already moved; surface the partial failure rather
		// than leaving the caller unaware of the drift.
		s.LogError(ctx, err, "Failed to mirror payout status onto transaction",
			slog.String("payout_id", payoutID),
			slog.String("reference_number", payout.ReferenceNumber))
		return nil, fmt.Errorf("payout %s updated but mirrored transaction was not: %w", payoutID, err)
	}

	// A completed payout now moves the balance; failed and cancelled free
	// the reserved amount. Either way the rollups change.
	if err := s.refreshRollups(ctx, account, userID); err != nil {
		return nil, err
	}

	payout.Status = req.Status
	payout.ProcessedBy = userID
	payout.ProcessedAt = processedAt
	if req.Notes != "" {
		payout.Notes = req.Notes
	}
	payout.LastUpdatedAt = now
	payout.LastUpdatedBy = userID

	s.LogInfo(ctx, "Payout status updated",
		slog.String("subject_id", subjectID),
		slog.String("payout_id", payoutID),
		slog.String("status", string(req.Status)))
	return payout, nil
}

func (s *payoutServiceImpl) refreshRollups(ctx context.Context, account *domain.Account, userID string) error {
	txns, err := s.txnRepo.ListByAccountID(ctx, account.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load transactions for account %s: %w", account.AccountID, err)
	}
	accounting.Recompute(account, txns)
	account.LastUpdatedAt = time.Now().UTC()
	account.LastUpdatedBy = userID

	if err := s.accountRepo.SaveRollups(ctx, *account); err != nil {
		return fmt.Errorf("failed to persist rollups for account %s: %w", account.AccountID, err)
	}
	return s.txnRepo.SaveRunningBalances(ctx, txns)
}
