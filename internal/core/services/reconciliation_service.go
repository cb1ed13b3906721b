package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
	portssvc "github.com/estateops/agentledger/internal/core/ports/services"
	"github.com/estateops/agentledger/internal/platform/config"
	"github.com/estateops/agentledger/internal/utils/accounting"
	"github.com/estateops/agentledger/internal/utils/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// lane is one recipient's share of a source event. Split events carry an
// owner and a collaborator lane; unsplit events carry a single RoleNone lane.
type lane struct {
	recipientID string
	role        domain.Role
	amount      decimal.Decimal
}

// lanesOf expands a source event into its positive lanes. When a split is
// present but neither share is positive, the event falls back to the
// single-recipient lane so pre-split data keeps reconciling. Only the
// commission share is ever posted; an event with no positive share yields no
// lanes, never the gross payment amount.
func lanesOf(event domain.SourceEvent) []lane {
	if split := event.Commission.Split; split != nil {
		var lanes []lane
		if split.OwnerID != "" && split.OwnerShare.IsPositive() {
			lanes = append(lanes, lane{recipientID: split.OwnerID, role: domain.RoleOwner, amount: split.OwnerShare})
		}
		if split.CollaboratorID != "" && split.CollaboratorShare.IsPositive() {
			lanes = append(lanes, lane{recipientID: split.CollaboratorID, role: domain.RoleCollaborator, amount: split.CollaboratorShare})
		}
		if len(lanes) > 0 {
			return lanes
		}
	}

	amount := event.Commission.RecipientShare
	if event.RecipientID == "" || !amount.IsPositive() {
		return nil
	}
	return []lane{{recipientID: event.RecipientID, role: domain.RoleNone, amount: amount}}
}

// reconciliationServiceImpl implements the ReconciliationSvcFacade interface
type reconciliationServiceImpl struct {
	BaseService
	accountRepo  portsrepo.AccountRepository
	txnRepo      portsrepo.TransactionRepository
	eventRepo    portsrepo.SourceEventRepository
	accountLocks *keyedMutex
	concurrency  int
	eventTimeout time.Duration
}

// NewReconciliationService creates the engine that translates source events
// into ledger entries.
func NewReconciliationService(accountRepo portsrepo.AccountRepository, txnRepo portsrepo.TransactionRepository, eventRepo portsrepo.SourceEventRepository, cfg *config.Config) portssvc.ReconciliationSvcFacade {
	return &reconciliationServiceImpl{
		accountRepo:  accountRepo,
		txnRepo:      txnRepo,
		eventRepo:    eventRepo,
		accountLocks: newKeyedMutex(),
		concurrency:  cfg.SyncConcurrency,
		eventTimeout: cfg.SyncEventTimeout,
	}
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationServiceImpl)(nil)

// SyncOne posts every positive lane of one source event, creating recipient
// accounts lazily. Ineligible events are skipped outright.
func (s *reconciliationServiceImpl) SyncOne(ctx context.Context, event domain.SourceEvent) error {
	if !event.Eligible() {
		s.LogDebug(ctx, "Skipping ineligible source event",
			slog.String("event_id", event.ID),
			slog.String("status", string(event.Status)))
		return nil
	}

	for _, l := range lanesOf(event) {
		unlock := s.accountLocks.Lock(l.recipientID)
		err := s.syncLaneLocked(ctx, l.recipientID, event, l)
		unlock()
		if err != nil {
			return fmt.Errorf("failed to sync event %s lane %s: %w", event.ID, l.role, err)
		}
	}
	return nil
}

// SyncAll runs a full backfill for one subject: every source event naming the
// subject is posted, then the defensive dedup sweep and a final recompute
// run. Individual event failures are logged and skipped.
func (s *reconciliationServiceImpl) SyncAll(ctx context.Context, subjectID string) error {
	unlock := s.accountLocks.Lock(subjectID)
	defer unlock()

	lookupCtx, cancel := context.WithTimeout(ctx, s.eventTimeout)
	events, err := s.eventRepo.FindByRecipientID(lookupCtx, subjectID)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to load source events for subject %s: %w", subjectID, err)
	}

	for _, event := range events {
		if !event.Eligible() {
			continue
		}
		for _, l := range lanesOf(event) {
			if l.recipientID != subjectID {
				continue
			}
			if err := s.syncLaneLocked(ctx, subjectID, event, l); err != nil {
				s.LogError(ctx, err, "Skipping source event after sync failure",
					slog.String("subject_id", subjectID),
					slog.String("event_id", event.ID),
					slog.String("role", string(l.role)))
			}
		}
	}

	account, err := s.findOrCreateAccountLocked(ctx, subjectID)
	if err != nil {
		return err
	}
	if err := s.sweepLocked(ctx, account.AccountID); err != nil {
		return err
	}
	return s.persistRecomputeLocked(ctx, account)
}

// SyncCompany fans SyncAll out over every subject of a company with bounded
// concurrency. Per-subject failures are logged, not propagated, so one bad
// ledger never aborts the sweep.
func (s *reconciliationServiceImpl) SyncCompany(ctx context.Context, companyID string) error {
	lookupCtx, cancel := context.WithTimeout(ctx, s.eventTimeout)
	recipients, err := s.eventRepo.ListRecipientIDsByCompany(lookupCtx, companyID)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to list recipients for company %s: %w", companyID, err)
	}

	known, err := s.accountRepo.ListSubjectIDsByCompany(ctx, companyID)
	if err != nil {
		return fmt.Errorf("failed to list accounts for company %s: %w", companyID, err)
	}

	subjects := make(map[string]bool, len(recipients)+len(known))
	for _, id := range recipients {
		subjects[id] = true
	}
	for _, id := range known {
		subjects[id] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for subjectID := range subjects {
		subjectID := subjectID
		g.Go(func() error {
			if err := s.SyncAll(gctx, subjectID); err != nil {
				s.LogError(gctx, err, "Subject sync failed during company sweep",
					slog.String("company_id", companyID),
					slog.String("subject_id", subjectID))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.LogInfo(ctx, "Company sweep finished",
		slog.String("company_id", companyID),
		slog.Int("subjects", len(subjects)))
	return nil
}

// syncLaneLocked posts one lane of an event to the recipient's ledger. The
// caller holds the account lock. Dedup checks run in priority order; only
// when none matches is a new entry appended.
func (s *reconciliationServiceImpl) syncLaneLocked(ctx context.Context, subjectID string, event domain.SourceEvent, l lane) error {
	account, err := s.findOrCreateAccountLocked(ctx, subjectID)
	if err != nil {
		return err
	}

	txns, err := s.txnRepo.ListByAccountID(ctx, account.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load transactions for account %s: %w", account.AccountID, err)
	}

	reference := domain.QualifiedReference(event.ID, l.role)

	for _, txn := range txns {
		if txn.SourceEventID == event.ID && txn.Role == l.role {
			return nil
		}
	}
	for _, txn := range txns {
		if txn.Reference != "" && txn.Reference == reference {
			return nil
		}
	}

	// Legacy backfill: an id-less entry that matches by amount and by a
	// role-appropriate reference or description is the same underlying
	// event. Attach the id in place instead of appending a twin.
	if legacy := findLegacyMatch(txns, event, l); legacy != nil {
		now := time.Now().UTC()
		err := s.txnRepo.AttachSourceEvent(ctx, legacy.TransactionID, event.ID, reference, l.role, systemUserID, now)
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to backfill event %s onto transaction %s: %w", event.ID, legacy.TransactionID, err)
		}
		s.LogInfo(ctx, "Backfilled source event onto legacy transaction",
			slog.String("account_id", account.AccountID),
			slog.String("transaction_id", legacy.TransactionID),
			slog.String("event_id", event.ID))
		return nil
	}

	now := time.Now().UTC()
	description := fmt.Sprintf("Commission for payment %s", event.ReferenceNumber)
	switch l.role {
	case domain.RoleOwner:
		description = fmt.Sprintf("Owner commission for payment %s", event.ReferenceNumber)
	case domain.RoleCollaborator:
		description = fmt.Sprintf("Collaborator commission for payment %s", event.ReferenceNumber)
	}

	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		AccountID:     account.AccountID,
		Type:          domain.TypeCommission,
		Amount:        l.amount,
		Date:          event.PaymentDate,
		Status:        domain.StatusCompleted,
		Reference:     reference,
		SourceEventID: event.ID,
		Role:          l.role,
		Description:   description,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     systemUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: systemUserID,
		},
	}

	projected := append(txns, txn)
	accounting.Recompute(account, projected)
	account.LastUpdatedAt = now
	account.LastUpdatedBy = systemUserID
	for _, p := range projected {
		if p.TransactionID == txn.TransactionID {
			txn.RunningBalance = p.RunningBalance
			break
		}
	}

	err = s.txnRepo.AppendWithRollups(ctx, txn, *account)
	if errors.Is(err, apperrors.ErrDuplicate) {
		// Another writer posted this lane first; the ledger already holds it.
		s.LogDebug(ctx, "Source event lane already posted",
			slog.String("account_id", account.AccountID),
			slog.String("event_id", event.ID),
			slog.String("role", string(l.role)))
		return nil
	}
	if err != nil {
		return err
	}
	// A backdated event shifts the running balances of every later entry, so
	// the whole recomputed log is persisted, not just the new row.
	return s.txnRepo.SaveRunningBalances(ctx, projected)
}

// findLegacyMatch scans for an id-less income entry carrying the same
// financial meaning as the lane. Amounts compare in minor units within one
// unit of tolerance because legacy rows were written from floating point.
func findLegacyMatch(txns []domain.Transaction, event domain.SourceEvent, l lane) *domain.Transaction {
	want := money.ToMinorUnits(l.amount)
	for i := range txns {
		txn := &txns[i]
		if txn.Type != domain.TypeCommission || txn.SourceEventID != "" {
			continue
		}
		if !money.WithinTolerance(money.ToMinorUnits(txn.Amount), want) {
			continue
		}

		legacyRole := txn.Role
		if legacyRole == domain.RoleNone {
			legacyRole = domain.RoleFromLegacyReference(txn.Reference)
		}
		if legacyRole != l.role {
			continue
		}

		if referencesEvent(txn, event) {
			return txn
		}
	}
	return nil
}

// referencesEvent reports whether a transaction's reference or description
// names the event by its external reference number or id.
func referencesEvent(txn *domain.Transaction, event domain.SourceEvent) bool {
	candidates := []string{event.ReferenceNumber, event.ID}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if txn.Reference != "" && strings.Contains(txn.Reference, c) {
			return true
		}
		if txn.Description != "" && strings.Contains(txn.Description, c) {
			return true
		}
	}
	return false
}

// sweepLocked is the defensive dedup pass. Id-backed income keeps the most
// recent row per (sourceEventID, role); id-less income keeps at most one per
// (base reference, role, minor-unit amount) bucket and is dropped entirely
// when an id-backed row already covers that event and role. Running it on a
// converged ledger removes nothing.
func (s *reconciliationServiceImpl) sweepLocked(ctx context.Context, accountID string) error {
	txns, err := s.txnRepo.ListByAccountID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load transactions for account %s: %w", accountID, err)
	}

	type idKey struct {
		eventID string
		role    domain.Role
	}
	type legacyKey struct {
		baseRef string
		role    domain.Role
		minor   int64
	}

	legacyKeyOf := func(txn domain.Transaction) legacyKey {
		role := txn.Role
		if role == domain.RoleNone {
			role = domain.RoleFromLegacyReference(txn.Reference)
		}
		return legacyKey{
			baseRef: domain.LegacyBaseReference(txn.Reference),
			role:    role,
			minor:   money.ToMinorUnits(txn.Amount),
		}
	}

	// Keepers are picked before any removal is emitted, so every removal
	// names the bucket's final survivor. Emitting survivors incrementally
	// would chain them, and a chained survivor can be deleted before the
	// removal that depends on it.
	idKeeper := make(map[idKey]domain.Transaction)
	for _, txn := range txns {
		if txn.Type != domain.TypeCommission || txn.SourceEventID == "" {
			continue
		}
		key := idKey{eventID: txn.SourceEventID, role: txn.Role}
		if kept, ok := idKeeper[key]; !ok || txn.CreatedAt.After(kept.CreatedAt) {
			idKeeper[key] = txn
		}
	}

	coveredBy := func(txn domain.Transaction) (domain.Transaction, bool) {
		key := legacyKeyOf(txn)
		covering, ok := idKeeper[idKey{eventID: key.baseRef, role: key.role}]
		return covering, ok
	}

	legacyKeeper := make(map[legacyKey]domain.Transaction)
	for _, txn := range txns {
		if txn.Type != domain.TypeCommission || txn.SourceEventID != "" {
			continue
		}
		if _, ok := coveredBy(txn); ok {
			continue
		}
		key := legacyKeyOf(txn)
		if kept, ok := legacyKeeper[key]; !ok || txn.CreatedAt.After(kept.CreatedAt) {
			legacyKeeper[key] = txn
		}
	}

	var removals []portsrepo.DuplicateRemoval
	for _, txn := range txns {
		if txn.Type != domain.TypeCommission {
			continue
		}
		if txn.SourceEventID != "" {
			keeper := idKeeper[idKey{eventID: txn.SourceEventID, role: txn.Role}]
			if keeper.TransactionID != txn.TransactionID {
				removals = append(removals, portsrepo.DuplicateRemoval{TransactionID: txn.TransactionID, SurvivorID: keeper.TransactionID})
			}
			continue
		}

		// An id-backed row for the same event and role supersedes the
		// legacy one outright.
		if covering, ok := coveredBy(txn); ok {
			removals = append(removals, portsrepo.DuplicateRemoval{TransactionID: txn.TransactionID, SurvivorID: covering.TransactionID})
			continue
		}
		keeper := legacyKeeper[legacyKeyOf(txn)]
		if keeper.TransactionID != txn.TransactionID {
			removals = append(removals, portsrepo.DuplicateRemoval{TransactionID: txn.TransactionID, SurvivorID: keeper.TransactionID})
		}
	}

	if len(removals) == 0 {
		return nil
	}

	sort.Slice(removals, func(i, j int) bool {
		return removals[i].TransactionID < removals[j].TransactionID
	})
	if err := s.txnRepo.RemoveDuplicates(ctx, removals); err != nil {
		return fmt.Errorf("failed to remove duplicates for account %s: %w", accountID, err)
	}
	s.LogInfo(ctx, "Dedup sweep removed duplicate income entries",
		slog.String("account_id", accountID),
		slog.Int("removed", len(removals)))
	return nil
}

// persistRecomputeLocked recomputes rollups and running balances from the
// post-sweep transaction log and persists them.
func (s *reconciliationServiceImpl) persistRecomputeLocked(ctx context.Context, account *domain.Account) error {
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
	return s.txnRepo.SaveRunningBalances(ctx, txns)
}

// findOrCreateAccountLocked resolves the subject's account, creating a
// skeleton one when the subject has never been seen. Reconciliation only
// knows the recipient id; richer details arrive through the ledger service.
func (s *reconciliationServiceImpl) findOrCreateAccountLocked(ctx context.Context, subjectID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindBySubjectID(ctx, subjectID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	created := domain.Account{
		AccountID: uuid.NewString(),
		SubjectID: subjectID,
		Name:      subjectID,
		IsActive:  true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     systemUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: systemUserID,
		},
	}
	err = s.accountRepo.Save(ctx, created)
	if errors.Is(err, apperrors.ErrDuplicate) {
		return s.accountRepo.FindBySubjectID(ctx, subjectID)
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}
