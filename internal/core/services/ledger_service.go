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
	"github.com/estateops/agentledger/internal/utils/accounting"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// systemUserID stamps audit fields on writes initiated by the engine itself
// rather than a named operator.
const systemUserID = "system"

// ledgerServiceImpl implements the LedgerSvcFacade interface
type ledgerServiceImpl struct {
	BaseService
	accountRepo portsrepo.AccountRepository
	txnRepo     portsrepo.TransactionRepository
	payoutRepo  portsrepo.PayoutRepository
	validate    *validator.Validate
}

// NewLedgerService creates the account-facing ledger service.
func NewLedgerService(accountRepo portsrepo.AccountRepository, txnRepo portsrepo.TransactionRepository, payoutRepo portsrepo.PayoutRepository) portssvc.LedgerSvcFacade {
	return &ledgerServiceImpl{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		payoutRepo:  payoutRepo,
		validate:    validator.New(),
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerServiceImpl)(nil)

// GetOrCreateAccount lazily creates the subject's ledger on first reference.
// It always recomputes the rollups from the transaction log before returning,
// so callers see a consistent snapshot even when the persisted rollups were
// stale.
func (s *ledgerServiceImpl) GetOrCreateAccount(ctx context.Context, subjectID, name, contactEmail, companyID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindBySubjectID(ctx, subjectID)
	if errors.Is(err, apperrors.ErrNotFound) {
		account, err = s.createAccount(ctx, subjectID, name, contactEmail, companyID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.refreshAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *ledgerServiceImpl) createAccount(ctx context.Context, subjectID, name, contactEmail, companyID string) (*domain.Account, error) {
	now := time.Now().UTC()
	account := domain.Account{
		AccountID:    uuid.NewString(),
		SubjectID:    subjectID,
		CompanyID:    companyID,
		Name:         name,
		ContactEmail: contactEmail,
		IsActive:     true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     systemUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: systemUserID,
		},
	}

	err := s.accountRepo.Save(ctx, account)
	if errors.Is(err, apperrors.ErrDuplicate) {
		// Lost a concurrent-create race; the other writer's account wins.
		return s.accountRepo.FindBySubjectID(ctx, subjectID)
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to create ledger account",
			slog.String("subject_id", subjectID))
		return nil, err
	}

	s.LogInfo(ctx, "Ledger account created",
		slog.String("account_id", account.AccountID),
		slog.String("subject_id", subjectID))
	return &account, nil
}

// refreshAccount recomputes rollups and running balances from the full
// transaction log and persists them.
func (s *ledgerServiceImpl) refreshAccount(ctx context.Context, account *domain.Account) error {
	txns, err := s.txnRepo.ListByAccountID(ctx, account.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load transactions for account %s: %w", account.AccountID, err)
	}

	accounting.Recompute(account, txns)
	account.LastUpdatedAt = time.Now().UTC()
	account.LastUpdatedBy = systemUserID

	if err := s.accountRepo.SaveRollups(ctx, *account); err != nil {
		return fmt.Errorf("failed to persist rollups for account %s: %w", account.AccountID, err)
	}
	if err := s.txnRepo.SaveRunningBalances(ctx, txns); err != nil {
		return fmt.Errorf("failed to persist running balances for account %s: %w", account.AccountID, err)
	}
	return nil
}

// GetAccountSummary returns the per-subject read model.
func (s *ledgerServiceImpl) GetAccountSummary(ctx context.Context, subjectID string) (*dto.AccountSummary, error) {
	account, err := s.accountRepo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	txns, err := s.txnRepo.ListByAccountID(ctx, account.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for subject %s: %w", subjectID, err)
	}
	accounting.Recompute(account, txns)

	payouts, err := s.payoutRepo.ListByAccountID(ctx, account.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payouts for subject %s: %w", subjectID, err)
	}

	summary := &dto.AccountSummary{
		SubjectID:          account.SubjectID,
		Name:               account.Name,
		RunningBalance:     account.RunningBalance.StringFixed(2),
		TotalCommissions:   account.TotalCommissions.StringFixed(2),
		TotalPenalties:     account.TotalPenalties.StringFixed(2),
		TotalPayouts:       account.TotalPayouts.StringFixed(2),
		LastCommissionDate: account.LastCommissionDate,
		LastPayoutDate:     account.LastPayoutDate,
		Transactions:       make([]dto.TransactionResponse, 0, len(txns)),
		Payouts:            make([]dto.PayoutResponse, 0, len(payouts)),
	}
	for _, txn := range txns {
		summary.Transactions = append(summary.Transactions, toTransactionResponse(txn))
	}
	for _, payout := range payouts {
		summary.Payouts = append(summary.Payouts, toPayoutResponse(payout))
	}
	return summary, nil
}

// AddPenalty appends a completed penalty entry against the subject's ledger.
func (s *ledgerServiceImpl) AddPenalty(ctx context.Context, subjectID string, req dto.AddPenaltyRequest, userID string) (*domain.Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: penalty amount must be positive", apperrors.ErrValidation)
	}

	account, err := s.accountRepo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		AccountID:     account.AccountID,
		Type:          domain.TypePenalty,
		Amount:        req.Amount,
		Date:          req.Date,
		Status:        domain.StatusCompleted,
		Description:   req.Description,
		Category:      req.Category,
		Notes:         req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.appendAndRecompute(ctx, account, &txn, userID); err != nil {
		s.LogError(ctx, err, "Failed to record penalty",
			slog.String("subject_id", subjectID),
			slog.String("amount", req.Amount.String()))
		return nil, err
	}

	s.LogInfo(ctx, "Penalty recorded",
		slog.String("subject_id", subjectID),
		slog.String("transaction_id", txn.TransactionID),
		slog.String("amount", req.Amount.String()))
	return &txn, nil
}

// appendAndRecompute recomputes the rollups with the new entry included and
// persists the entry and rollups atomically, then refreshes the stored
// running balances. The entry is enriched in place with its computed running
// balance.
func (s *ledgerServiceImpl) appendAndRecompute(ctx context.Context, account *domain.Account, txn *domain.Transaction, userID string) error {
	existing, err := s.txnRepo.ListByAccountID(ctx, account.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load transactions for account %s: %w", account.AccountID, err)
	}

	projected := append(existing, *txn)
	accounting.Recompute(account, projected)
	account.LastUpdatedAt = time.Now().UTC()
	account.LastUpdatedBy = userID

	for _, p := range projected {
		if p.TransactionID == txn.TransactionID {
			txn.RunningBalance = p.RunningBalance
			break
		}
	}

	if err := s.txnRepo.AppendWithRollups(ctx, *txn, *account); err != nil {
		return err
	}
	// A backdated entry shifts the running balances of every later entry, so
	// the whole recomputed log is persisted, not just the new row.
	return s.txnRepo.SaveRunningBalances(ctx, projected)
}

// AcknowledgementDocument returns the data an external renderer needs to
// produce a payout acknowledgement.
func (s *ledgerServiceImpl) AcknowledgementDocument(ctx context.Context, subjectID, payoutID string) (*dto.AcknowledgementDocument, error) {
	account, err := s.accountRepo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	payout, err := s.payoutRepo.FindByID(ctx, account.AccountID, payoutID)
	if err != nil {
		return nil, err
	}

	return &dto.AcknowledgementDocument{
		Payout:         toPayoutResponse(*payout),
		SubjectName:    account.Name,
		SubjectContact: account.ContactEmail,
	}, nil
}

func toTransactionResponse(txn domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		TransactionID:  txn.TransactionID,
		Type:           string(txn.Type),
		Amount:         txn.Amount.StringFixed(2),
		Date:           txn.Date,
		Status:         string(txn.Status),
		Reference:      txn.Reference,
		SourceEventID:  txn.SourceEventID,
		Role:           string(txn.Role),
		Description:    txn.Description,
		Category:       txn.Category,
		Notes:          txn.Notes,
		RunningBalance: txn.RunningBalance.StringFixed(2),
	}
}

func toPayoutResponse(payout domain.Payout) dto.PayoutResponse {
	return dto.PayoutResponse{
		PayoutID:        payout.PayoutID,
		Amount:          payout.Amount.StringFixed(2),
		Date:            payout.Date,
		PaymentMethod:   payout.PaymentMethod,
		RecipientID:     payout.RecipientID,
		RecipientName:   payout.RecipientName,
		ReferenceNumber: payout.ReferenceNumber,
		Status:          string(payout.Status),
		ProcessedBy:     payout.ProcessedBy,
		ProcessedAt:     payout.ProcessedAt,
		Notes:           payout.Notes,
	}
}
