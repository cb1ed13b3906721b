package services_test

import (
	"testing"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/dto"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	env *testEnv
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.env = newTestEnv()
}

func (suite *LedgerServiceTestSuite) TestGetOrCreateAccount_Idempotent() {
	env := suite.env

	first, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "a@example.com", "co1")
	suite.Require().NoError(err)
	suite.Require().NotNil(first)
	suite.Equal("agentA", first.SubjectID)
	suite.True(first.IsActive)
	suite.Equal("0.00", first.RunningBalance.StringFixed(2))

	second, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Different Name", "other@example.com", "co1")
	suite.Require().NoError(err)
	suite.Equal(first.AccountID, second.AccountID)
	suite.Equal("Agent A", second.Name)
}

func (suite *LedgerServiceTestSuite) TestGetAccountSummary_NotFound() {
	_, err := suite.env.svcs.Ledger.GetAccountSummary(suite.env.ctx, "nobody")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestAddPenalty_Validation() {
	env := suite.env
	_, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "", "co1")
	suite.Require().NoError(err)

	_, err = env.svcs.Ledger.AddPenalty(env.ctx, "agentA", dto.AddPenaltyRequest{
		Amount: dec("0"), Date: paymentDay(2), Description: "late fee",
	}, "admin")
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = env.svcs.Ledger.AddPenalty(env.ctx, "agentA", dto.AddPenaltyRequest{
		Amount: dec("-5"), Date: paymentDay(2), Description: "late fee",
	}, "admin")
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = env.svcs.Ledger.AddPenalty(env.ctx, "agentA", dto.AddPenaltyRequest{
		Amount: dec("5"), Date: paymentDay(2),
	}, "admin")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestAddPenalty_RecordsCompletedEntry() {
	env := suite.env
	_, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "", "co1")
	suite.Require().NoError(err)

	txn, err := env.svcs.Ledger.AddPenalty(env.ctx, "agentA", dto.AddPenaltyRequest{
		Amount:      dec("20.00"),
		Date:        paymentDay(2),
		Description: "Missed inspection",
		Category:    "compliance",
	}, "admin")
	suite.Require().NoError(err)
	suite.Equal(domain.TypePenalty, txn.Type)
	suite.Equal(domain.StatusCompleted, txn.Status)
	suite.Equal("admin", txn.CreatedBy)
	suite.Equal("-20.00", txn.RunningBalance.StringFixed(2))

	summary, err := env.svcs.Ledger.GetAccountSummary(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Equal("-20.00", summary.RunningBalance)
	suite.Equal("20.00", summary.TotalPenalties)
}

func (suite *LedgerServiceTestSuite) TestAddPenalty_BackdatedRefreshesStoredBalances() {
	env := suite.env
	_, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "", "co1")
	suite.Require().NoError(err)

	event := completedEvent("p1", "agentA", "100.00")
	event.PaymentDate = paymentDay(5)
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	_, err = env.svcs.Ledger.AddPenalty(env.ctx, "agentA", dto.AddPenaltyRequest{
		Amount: dec("20.00"), Date: paymentDay(2), Description: "Chargeback fee",
	}, "admin")
	suite.Require().NoError(err)

	// The stored log, not a fresh recompute, must carry the shifted balances.
	account, err := env.store.Accounts().FindBySubjectID(env.ctx, "agentA")
	suite.Require().NoError(err)
	txns, err := env.store.Transactions().ListByAccountID(env.ctx, account.AccountID)
	suite.Require().NoError(err)
	suite.Require().Len(txns, 2)
	suite.Equal("-20.00", txns[0].RunningBalance.StringFixed(2))
	suite.Equal("80.00", txns[1].RunningBalance.StringFixed(2))
}

// The end-to-end flow: a 150 commission, a 20 penalty and a completed 100
// payout leave a balance of 30.
func (suite *LedgerServiceTestSuite) TestLedgerLifecycle() {
	env := suite.env

	_, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "a@example.com", "co1")
	suite.Require().NoError(err)

	event := completedEvent("p1", "agentA", "150.00")
	event.Amount = dec("1000.00")
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, event))

	summary, err := env.svcs.Ledger.GetAccountSummary(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Equal("150.00", summary.RunningBalance)
	suite.Require().Len(summary.Transactions, 1)
	suite.Equal("p1", summary.Transactions[0].Reference)
	suite.Equal("p1", summary.Transactions[0].SourceEventID)

	_, err = env.svcs.Ledger.AddPenalty(env.ctx, "agentA", dto.AddPenaltyRequest{
		Amount: dec("20.00"), Date: paymentDay(2), Description: "Chargeback fee",
	}, "admin")
	suite.Require().NoError(err)

	summary, err = env.svcs.Ledger.GetAccountSummary(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Equal("130.00", summary.RunningBalance)

	payout, err := env.svcs.Payouts.CreatePayout(env.ctx, "agentA", dto.CreatePayoutRequest{
		Amount:        dec("100.00"),
		PaymentMethod: "bank_transfer",
		RecipientID:   "agentA",
		RecipientName: "Agent A",
	}, "admin")
	suite.Require().NoError(err)
	suite.Equal(domain.PayoutPending, payout.Status)

	_, err = env.svcs.Payouts.UpdatePayoutStatus(env.ctx, "agentA", payout.PayoutID, dto.UpdatePayoutStatusRequest{
		Status: domain.PayoutCompleted,
	}, "admin")
	suite.Require().NoError(err)

	summary, err = env.svcs.Ledger.GetAccountSummary(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Equal("30.00", summary.RunningBalance)
	suite.Equal("150.00", summary.TotalCommissions)
	suite.Equal("20.00", summary.TotalPenalties)
	suite.Equal("100.00", summary.TotalPayouts)
}

func (suite *LedgerServiceTestSuite) TestAcknowledgementDocument() {
	env := suite.env

	_, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "a@example.com", "co1")
	suite.Require().NoError(err)
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, completedEvent("p1", "agentA", "75.00")))

	payout, err := env.svcs.Payouts.CreatePayout(env.ctx, "agentA", dto.CreatePayoutRequest{
		Amount:        dec("75.00"),
		PaymentMethod: "bank_transfer",
		RecipientID:   "agentA",
		RecipientName: "Agent A",
	}, "admin")
	suite.Require().NoError(err)

	doc, err := env.svcs.Ledger.AcknowledgementDocument(env.ctx, "agentA", payout.PayoutID)
	suite.Require().NoError(err)
	suite.Equal("Agent A", doc.SubjectName)
	suite.Equal("a@example.com", doc.SubjectContact)
	suite.Equal(payout.ReferenceNumber, doc.Payout.ReferenceNumber)
	suite.Equal("75.00", doc.Payout.Amount)

	_, err = env.svcs.Ledger.AcknowledgementDocument(env.ctx, "agentA", "missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestSummaryTimestampsSurviveRecompute() {
	env := suite.env

	_, err := env.svcs.Ledger.GetOrCreateAccount(env.ctx, "agentA", "Agent A", "", "co1")
	suite.Require().NoError(err)
	suite.Require().NoError(env.svcs.Reconciliation.SyncOne(env.ctx, completedEvent("p1", "agentA", "10.00")))

	summary, err := env.svcs.Ledger.GetAccountSummary(env.ctx, "agentA")
	suite.Require().NoError(err)
	suite.Require().NotNil(summary.LastCommissionDate)
	suite.True(summary.LastCommissionDate.Equal(paymentDay(1)))
	suite.Nil(summary.LastPayoutDate)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
