package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/estateops/agentledger/internal/core/domain"
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
	"github.com/estateops/agentledger/internal/core/services"
	"github.com/estateops/agentledger/internal/platform/config"
	"github.com/stretchr/testify/suite"
)

type ReconciliationServiceTestSuite struct {
	suite.Suite
	env *testEnv
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	suite.env = newTestEnv()
}

func (suite *ReconciliationServiceTestSuite) transactionsOf(subjectID string) []domain.Transaction {
	account, err := suite.env.store.Accounts().FindBySubjectID(suite.env.ctx, subjectID)
	suite.Require().NoError(err)
	txns, err := suite.env.store.Transactions().ListByAccountID(suite.env.ctx, account.AccountID)
	suite.Require().NoError(err)
	return txns
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_PostsCommission() {
	env := suite.env
	event := completedEvent("p1", "agentA", "150.00")

	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 1)
	suite.Equal(domain.TypeCommission, txns[0].Type)
	suite.Equal("150.00", txns[0].Amount.StringFixed(2))
	suite.Equal("p1", txns[0].SourceEventID)
	suite.Equal("p1", txns[0].Reference)
	suite.Equal(domain.RoleNone, txns[0].Role)
	suite.Equal(domain.StatusCompleted, txns[0].Status)
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_Idempotent() {
	env := suite.env
	event := completedEvent("p1", "agentA", "150.00")

	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 1)

	summary, err := env.svcs.Ledger.GetAccountSummary(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Equal("150.00", summary.RunningBalance)
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_SplitLanes() {
	env := suite.env
	event := splitEvent("p2", "owner1", "60.00", "collab1", "40.00")

	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	ownerTxns := suite.transactionsOf("owner1")
	suite.Require().Len(ownerTxns, 1)
	suite.Equal("60.00", ownerTxns[0].Amount.StringFixed(2))
	suite.Equal("p2-owner", ownerTxns[0].Reference)
	suite.Equal(domain.RoleOwner, ownerTxns[0].Role)

	collabTxns := suite.transactionsOf("collab1")
	suite.Require().Len(collabTxns, 1)
	suite.Equal("40.00", collabTxns[0].Amount.StringFixed(2))
	suite.Equal("p2-collaborator", collabTxns[0].Reference)
	suite.Equal(domain.RoleCollaborator, collabTxns[0].Role)
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_SplitWithOnePositiveLane() {
	env := suite.env
	event := splitEvent("p3", "owner1", "60.00", "collab1", "0.00")

	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	suite.Require().Len(suite.transactionsOf("owner1"), 1)
	_, err := env.store.Accounts().FindBySubjectID(env.ctx, "collab1")
	suite.Error(err)
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_ZeroSharePostsNothing() {
	env := suite.env

	// Only the commission share is ever income; the gross payment amount
	// must not leak into the ledger when the share is zero.
	event := completedEvent("p9", "agentA", "0.00")
	event.Amount = dec("1000.00")

	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	_, err := env.store.Accounts().FindBySubjectID(env.ctx, "agentA")
	suite.Error(err)
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_BackdatedEventRefreshesStoredBalances() {
	env := suite.env

	later := completedEvent("p2", "agentA", "100.00")
	later.PaymentDate = paymentDay(5)
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, later))

	earlier := completedEvent("p1", "agentA", "50.00")
	earlier.PaymentDate = paymentDay(1)
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, earlier))

	// The stored log, not a fresh recompute, must carry the shifted balances.
	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 2)
	suite.Equal("p1", txns[0].SourceEventID)
	suite.Equal("50.00", txns[0].RunningBalance.StringFixed(2))
	suite.Equal("p2", txns[1].SourceEventID)
	suite.Equal("150.00", txns[1].RunningBalance.StringFixed(2))
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_IneligibleSkipped() {
	env := suite.env
	notFinalized := false

	events := []domain.SourceEvent{
		func() domain.SourceEvent {
			e := completedEvent("e1", "agentA", "10.00")
			e.Status = domain.SourceEventPending
			return e
		}(),
		func() domain.SourceEvent {
			e := completedEvent("e2", "agentA", "10.00")
			e.IsProvisional = true
			return e
		}(),
		func() domain.SourceEvent {
			e := completedEvent("e3", "agentA", "10.00")
			e.IsInSuspense = true
			return e
		}(),
		func() domain.SourceEvent {
			e := completedEvent("e4", "agentA", "10.00")
			e.CommissionFinalized = &notFinalized
			return e
		}(),
	}

	for _, event := range events {
		suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))
	}

	// No account should even have been created.
	_, err := env.store.Accounts().FindBySubjectID(env.ctx, "agentA")
	suite.Error(err)
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_LegacyBackfill() {
	env := suite.env

	account, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "", "co1")
	suite.Require().NoError(err)

	legacy := domain.Transaction{
		TransactionID: "legacy1",
		AccountID:     account.AccountID,
		Type:          domain.TypeCommission,
		Amount:        dec("100.00"),
		Date:          paymentDay(1),
		Status:        domain.StatusCompleted,
		Reference:     "REF123",
		Description:   "Commission REF123",
	}
	suite.Require().NoError(env.store.Transactions().AppendTransaction(env.ctx, legacy))

	event := completedEvent("evt1", "agentA", "100.00")
	event.ReferenceNumber = "REF123"
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 1)
	suite.Equal("legacy1", txns[0].TransactionID)
	suite.Equal("evt1", txns[0].SourceEventID)
	suite.Equal("evt1", txns[0].Reference)

	// A second sync hits the id match and changes nothing.
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))
	suite.Require().Len(suite.transactionsOf("agentA"), 1)
}

func (suite *ReconciliationServiceTestSuite) TestSyncOne_BackfillRespectsRoleAndAmount() {
	env := suite.env

	account, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "", "co1")
	suite.Require().NoError(err)

	// Same reference text but the amount is off by more than one minor unit:
	// not the same event, a new entry must be appended.
	legacy := domain.Transaction{
		TransactionID: "legacy1",
		AccountID:     account.AccountID,
		Type:          domain.TypeCommission,
		Amount:        dec("90.00"),
		Date:          paymentDay(1),
		Status:        domain.StatusCompleted,
		Reference:     "REF123",
	}
	suite.Require().NoError(env.store.Transactions().AppendTransaction(env.ctx, legacy))

	event := completedEvent("evt1", "agentA", "100.00")
	event.ReferenceNumber = "REF123"
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 2)
}

func (suite *ReconciliationServiceTestSuite) TestSyncAll_PostsAllSubjectEvents() {
	env := suite.env

	env.events.Put("co1", completedEvent("p1", "agentA", "100.00"))
	env.events.Put("co1", completedEvent("p2", "agentA", "50.00"))
	env.events.Put("co1", splitEvent("p3", "agentA", "25.00", "collab1", "75.00"))

	suite.Require().NoError(env.svcs.Reconciliation.SyncAll(env.ctx, "agentA"))

	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 3)

	account, err := env.store.Accounts().FindBySubjectID(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Equal("175.00", account.RunningBalance.StringFixed(2))

	// The collaborator's lane stays untouched until their own sync runs.
	_, err = env.store.Accounts().FindBySubjectID(env.ctx, "collab1")
	suite.Error(err)
}

func (suite *ReconciliationServiceTestSuite) TestSyncAll_SweepRemovesDuplicates() {
	env := suite.env

	account, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "", "co1")
	suite.Require().NoError(err)

	base := domain.Transaction{
		AccountID: account.AccountID,
		Type:      domain.TypeCommission,
		Status:    domain.StatusCompleted,
		Date:      paymentDay(1),
	}

	// An id-backed row and a legacy suffixed twin for the same event and role.
	idBacked := base
	idBacked.TransactionID = "t1"
	idBacked.SourceEventID = "evt9"
	idBacked.Role = domain.RoleOwner
	idBacked.Amount = dec("60.00")
	idBacked.CreatedAt = paymentDay(2)
	suite.Require().NoError(env.store.Transactions().AppendTransaction(env.ctx, idBacked))

	superseded := base
	superseded.TransactionID = "t2"
	superseded.Reference = "evt9-owner"
	superseded.Amount = dec("60.00")
	superseded.CreatedAt = paymentDay(1)
	suite.Require().NoError(env.store.Transactions().AppendTransaction(env.ctx, superseded))

	// Two reference-less legacy twins in the same bucket.
	dupA := base
	dupA.TransactionID = "t3"
	dupA.Amount = dec("25.00")
	dupA.CreatedAt = paymentDay(1)
	suite.Require().NoError(env.store.Transactions().AppendTransaction(env.ctx, dupA))

	dupB := base
	dupB.TransactionID = "t4"
	dupB.Amount = dec("25.00")
	dupB.CreatedAt = paymentDay(3)
	suite.Require().NoError(env.store.Transactions().AppendTransaction(env.ctx, dupB))

	suite.Require().NoError(env.svcs.Reconciliation.SyncAll(env.ctx, "agentA"))

	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 2)
	ids := map[string]bool{}
	for _, txn := range txns {
		ids[txn.TransactionID] = true
	}
	suite.True(ids["t1"])
	suite.True(ids["t4"]) // most recent of the legacy bucket survives

	account, err = env.store.Accounts().FindBySubjectID(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Equal("85.00", account.RunningBalance.StringFixed(2))

	// Converged: a second pass removes nothing.
	suite.Require().NoError(env.svcs.Reconciliation.SyncAll(env.ctx, "agentA"))
	suite.Require().Len(suite.transactionsOf("agentA"), 2)
}

func (suite *ReconciliationServiceTestSuite) TestSyncAll_SweepSurvivesThreeWayDuplicates() {
	env := suite.env

	account, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "", "co1")
	suite.Require().NoError(err)

	// Three id-less twins whose ids sort against their age. Each removal must
	// name the bucket's final keeper; chained survivors would be deleted
	// before the removals that depend on them.
	for _, seed := range []struct {
		id      string
		created time.Time
	}{
		{"t3", paymentDay(1)},
		{"t2", paymentDay(2)},
		{"t1", paymentDay(3)},
	} {
		txn := domain.Transaction{
			TransactionID: seed.id,
			AccountID:     account.AccountID,
			Type:          domain.TypeCommission,
			Amount:        dec("25.00"),
			Date:          paymentDay(1),
			Status:        domain.StatusCompleted,
		}
		txn.CreatedAt = seed.created
		suite.Require().NoError(env.store.Transactions().AppendTransaction(env.ctx, txn))
	}

	suite.Require().NoError(env.svcs.Reconciliation.SyncAll(env.ctx, "agentA"))

	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 1)
	suite.Equal("t1", txns[0].TransactionID) // most recent survives

	account, err = env.store.Accounts().FindBySubjectID(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Equal("25.00", account.RunningBalance.StringFixed(2))
}

// flakyTransactionRepo fails appends for one poisoned source event.
type flakyTransactionRepo struct {
	portsrepo.TransactionRepository
	failEventID string
}

func (f *flakyTransactionRepo) AppendWithRollups(ctx context.Context, txn domain.Transaction, account domain.Account) error {
	if txn.SourceEventID == f.failEventID {
		return errors.New("storage hiccup")
	}
	return f.TransactionRepository.AppendWithRollups(ctx, txn, account)
}

func (suite *ReconciliationServiceTestSuite) TestSyncAll_OneBadEventDoesNotAbort() {
	env := suite.env

	flaky := &flakyTransactionRepo{TransactionRepository: env.store.Transactions(), failEventID: "bad"}
	recon := services.NewReconciliationService(env.store.Accounts(), flaky, env.events,
		&config.Config{SyncConcurrency: 2, SyncEventTimeout: time.Second})

	env.events.Put("co1", completedEvent("bad", "agentA", "10.00"))
	env.events.Put("co1", completedEvent("good", "agentA", "20.00"))

	suite.Require().NoError(recon.SyncAll(env.ctx, "agentA"))

	txns := suite.transactionsOf("agentA")
	suite.Require().Len(txns, 1)
	suite.Equal("good", txns[0].SourceEventID)
}

func (suite *ReconciliationServiceTestSuite) TestSyncCompany_FansOut() {
	env := suite.env

	env.events.Put("co1", completedEvent("p1", "agentA", "100.00"))
	env.events.Put("co1", splitEvent("p2", "agentB", "60.00", "agentC", "40.00"))

	suite.Require().NoError(env.svcs.Reconciliation.SyncCompany(env.ctx, "co1"))

	for subject, want := range map[string]string{
		"agentA": "100.00",
		"agentB": "60.00",
		"agentC": "40.00",
	} {
		account, err := env.store.Accounts().FindBySubjectID(env.ctx, subject)
		suite.Require().NoError(err, subject)
		suite.Equal(want, account.RunningBalance.StringFixed(2), subject)
	}
}

func TestReconciliationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}
