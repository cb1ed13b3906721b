// Package memory provides an in-memory Ledger Store for tests and local
// runs. It funnels every write through the same mutation guard as the pgsql
// implementation and enforces the same uniqueness rules, so service-level
// behavior matches production.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/core/guard"
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
)

// Store holds all ledger state behind one lock. The repository interfaces are
// exposed as views over this shared state via Accounts, Transactions and
// Payouts.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account       // by account id
	bySubject    map[string]string               // subject id -> account id
	transactions map[string][]domain.Transaction // by account id, date order
	payouts      map[string][]domain.Payout      // by account id
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]domain.Account),
		bySubject:    make(map[string]string),
		transactions: make(map[string][]domain.Transaction),
		payouts:      make(map[string][]domain.Payout),
	}
}

// Accounts returns the account repository view.
func (s *Store) Accounts() portsrepo.AccountRepository { return &accountStore{s} }

// Transactions returns the transaction log view.
func (s *Store) Transactions() portsrepo.TransactionRepository { return &transactionStore{s} }

// Payouts returns the payout repository view.
func (s *Store) Payouts() portsrepo.PayoutRepository { return &payoutStore{s} }

type accountStore struct{ *Store }
type transactionStore struct{ *Store }
type payoutStore struct{ *Store }

var (
	_ portsrepo.AccountRepository     = (*accountStore)(nil)
	_ portsrepo.TransactionRepository = (*transactionStore)(nil)
	_ portsrepo.PayoutRepository      = (*payoutStore)(nil)
)

// --- AccountRepository ---

func (s *accountStore) Save(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySubject[account.SubjectID]; exists {
		return fmt.Errorf("%w: account for subject %s already exists", apperrors.ErrDuplicate, account.SubjectID)
	}
	s.accounts[account.AccountID] = account
	s.bySubject[account.SubjectID] = account.AccountID
	return nil
}

func (s *accountStore) FindBySubjectID(_ context.Context, subjectID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID, ok := s.bySubject[subjectID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	account := s.accounts[accountID]
	return &account, nil
}

func (s *accountStore) FindBySubjectIDs(_ context.Context, subjectIDs []string) (map[string]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Account)
	for _, subjectID := range subjectIDs {
		if accountID, ok := s.bySubject[subjectID]; ok {
			result[subjectID] = s.accounts[accountID]
		}
	}
	return result, nil
}

func (s *accountStore) ListSubjectIDsByCompany(_ context.Context, companyID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjectIDs := []string{}
	for _, account := range s.accounts {
		if account.CompanyID == companyID && account.IsActive {
			subjectIDs = append(subjectIDs, account.SubjectID)
		}
	}
	sort.Strings(subjectIDs)
	return subjectIDs, nil
}

func (s *accountStore) SaveRollups(_ context.Context, account domain.Account) error {
	if err := guard.Check(guard.Write{Kind: guard.SetRollups}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveRollupsLocked(account)
}

func (s *Store) saveRollupsLocked(account domain.Account) error {
	stored, ok := s.accounts[account.AccountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.RunningBalance = account.RunningBalance
	stored.TotalCommissions = account.TotalCommissions
	stored.TotalPenalties = account.TotalPenalties
	stored.TotalPayouts = account.TotalPayouts
	stored.LastCommissionDate = account.LastCommissionDate
	stored.LastPayoutDate = account.LastPayoutDate
	stored.LastUpdatedAt = account.LastUpdatedAt
	stored.LastUpdatedBy = account.LastUpdatedBy
	s.accounts[account.AccountID] = stored
	return nil
}

func (s *accountStore) Delete(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if err := guard.CheckAccountDelete(len(s.transactions[accountID]), len(s.payouts[accountID])); err != nil {
		return err
	}
	delete(s.accounts, accountID)
	delete(s.bySubject, account.SubjectID)
	return nil
}

// --- TransactionRepository ---

// checkTransactionUniquenessLocked enforces the two income dedup invariants:
// (account, sourceEventID, role) and (account, reference). Both apply to
// COMMISSION entries only, matching the partial unique indexes in pgsql.
func (s *Store) checkTransactionUniquenessLocked(txn domain.Transaction) error {
	if txn.Type != domain.TypeCommission {
		return nil
	}
	for _, existing := range s.transactions[txn.AccountID] {
		if existing.Type != domain.TypeCommission {
			continue
		}
		if txn.SourceEventID != "" &&
			existing.SourceEventID == txn.SourceEventID && existing.Role == txn.Role {
			return fmt.Errorf("%w: source event %s already recorded for role %q",
				apperrors.ErrDuplicate, txn.SourceEventID, txn.Role)
		}
		if txn.Reference != "" && existing.Reference == txn.Reference {
			return fmt.Errorf("%w: reference %q already recorded", apperrors.ErrDuplicate, txn.Reference)
		}
	}
	return nil
}

func (s *Store) appendTransactionLocked(txn domain.Transaction) error {
	if err := guard.Check(guard.Write{Kind: guard.AppendTransaction}); err != nil {
		return err
	}
	if err := s.checkTransactionUniquenessLocked(txn); err != nil {
		return err
	}

	txns := s.transactions[txn.AccountID]
	// Insert in date order so reads come back chronological.
	i := sort.Search(len(txns), func(i int) bool {
		return txns[i].Date.After(txn.Date)
	})
	txns = append(txns, domain.Transaction{})
	copy(txns[i+1:], txns[i:])
	txns[i] = txn
	s.transactions[txn.AccountID] = txns
	return nil
}

func (s *transactionStore) AppendTransaction(_ context.Context, txn domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendTransactionLocked(txn)
}

func (s *transactionStore) AppendWithRollups(_ context.Context, txn domain.Transaction, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.AccountID]; !ok {
		return apperrors.ErrNotFound
	}
	if err := s.appendTransactionLocked(txn); err != nil {
		return err
	}
	if err := guard.Check(guard.Write{Kind: guard.SetRollups}); err != nil {
		return err
	}
	return s.saveRollupsLocked(account)
}

func (s *transactionStore) ListByAccountID(_ context.Context, accountID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, len(s.transactions[accountID]))
	copy(result, s.transactions[accountID])
	return result, nil
}

func (s *Store) findTransactionLocked(transactionID string) (string, int, bool) {
	for accountID, txns := range s.transactions {
		for i, txn := range txns {
			if txn.TransactionID == transactionID {
				return accountID, i, true
			}
		}
	}
	return "", 0, false
}

func (s *transactionStore) UpdateStatus(_ context.Context, transactionID string, status domain.TransactionStatus, updatedBy string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTransactionStatusLocked(transactionID, status, updatedBy, now)
}

func (s *Store) updateTransactionStatusLocked(transactionID string, status domain.TransactionStatus, updatedBy string, now time.Time) error {
	accountID, i, found := s.findTransactionLocked(transactionID)
	if !found {
		return apperrors.ErrNotFound
	}

	current := s.transactions[accountID][i]
	if err := guard.Check(guard.Write{
		Kind:       guard.SetTransactionStatus,
		FromStatus: string(current.Status),
		ToStatus:   string(status),
	}); err != nil {
		return err
	}

	current.Status = status
	current.LastUpdatedAt = now
	current.LastUpdatedBy = updatedBy
	s.transactions[accountID][i] = current
	return nil
}

func (s *transactionStore) UpdateStatusByReference(_ context.Context, accountID, reference string, status domain.TransactionStatus, updatedBy string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range s.transactions[accountID] {
		if txn.Reference == reference {
			return s.updateTransactionStatusLocked(txn.TransactionID, status, updatedBy, now)
		}
	}
	return apperrors.NewNotFoundError("no transaction with reference " + reference + " on account " + accountID)
}

func (s *transactionStore) AttachSourceEvent(_ context.Context, transactionID, sourceEventID, reference string, role domain.Role, updatedBy string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accountID, i, found := s.findTransactionLocked(transactionID)
	if !found {
		return apperrors.ErrNotFound
	}

	current := s.transactions[accountID][i]
	if err := guard.Check(guard.Write{
		Kind:                  guard.AttachSourceEvent,
		ExistingSourceEventID: current.SourceEventID,
		NewSourceEventID:      sourceEventID,
	}); err != nil {
		return err
	}

	for j, other := range s.transactions[accountID] {
		if j != i && other.SourceEventID == sourceEventID && other.Role == role {
			return fmt.Errorf("%w: source event %s already linked on this account", apperrors.ErrDuplicate, sourceEventID)
		}
	}

	current.SourceEventID = sourceEventID
	current.Reference = reference
	current.Role = role
	current.LastUpdatedAt = now
	current.LastUpdatedBy = updatedBy
	s.transactions[accountID][i] = current
	return nil
}

func (s *transactionStore) SaveRunningBalances(_ context.Context, txns []domain.Transaction) error {
	if err := guard.Check(guard.Write{Kind: guard.SetRollups}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range txns {
		accountID, i, found := s.findTransactionLocked(txn.TransactionID)
		if !found {
			continue
		}
		s.transactions[accountID][i].RunningBalance = txn.RunningBalance
	}
	return nil
}

func (s *transactionStore) RemoveDuplicates(_ context.Context, removals []portsrepo.DuplicateRemoval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, removal := range removals {
		removedAccount, i, found := s.findTransactionLocked(removal.TransactionID)
		if !found {
			// Already gone; a prior sweep converged.
			continue
		}
		survivorAccount, _, survivorFound := s.findTransactionLocked(removal.SurvivorID)

		if err := guard.Check(guard.Write{
			Kind:             guard.RemoveDuplicateTransaction,
			HasSurvivingTwin: survivorFound && survivorAccount == removedAccount,
		}); err != nil {
			return err
		}

		txns := s.transactions[removedAccount]
		s.transactions[removedAccount] = append(txns[:i], txns[i+1:]...)
	}
	return nil
}

// --- PayoutRepository ---

func (s *payoutStore) AppendPayout(_ context.Context, payout domain.Payout) error {
	if err := guard.Check(guard.Write{Kind: guard.AppendPayout}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.payouts {
		for _, p := range existing {
			if p.ReferenceNumber == payout.ReferenceNumber {
				return fmt.Errorf("%w: payout reference %s already exists", apperrors.ErrDuplicate, payout.ReferenceNumber)
			}
		}
	}
	s.payouts[payout.AccountID] = append(s.payouts[payout.AccountID], payout)
	return nil
}

func (s *payoutStore) ListByAccountID(_ context.Context, accountID string) ([]domain.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Payout, len(s.payouts[accountID]))
	copy(result, s.payouts[accountID])
	return result, nil
}

func (s *payoutStore) FindByID(_ context.Context, accountID, payoutID string) (*domain.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, payout := range s.payouts[accountID] {
		if payout.PayoutID == payoutID {
			p := payout
			return &p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *payoutStore) UpdateStatus(_ context.Context, payoutID string, status domain.PayoutStatus, processedBy string, processedAt *time.Time, notes string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for accountID, payouts := range s.payouts {
		for i, payout := range payouts {
			if payout.PayoutID != payoutID {
				continue
			}
			if err := guard.Check(guard.Write{
				Kind:       guard.SetPayoutStatus,
				FromStatus: string(payout.Status),
				ToStatus:   string(status),
			}); err != nil {
				return err
			}
			payout.Status = status
			payout.ProcessedBy = processedBy
			payout.ProcessedAt = processedAt
			if notes != "" {
				payout.Notes = notes
			}
			payout.LastUpdatedAt = now
			payout.LastUpdatedBy = processedBy
			s.payouts[accountID][i] = payout
			return nil
		}
	}
	return apperrors.ErrNotFound
}
