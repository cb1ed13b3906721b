package guard_test

import (
	"testing"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/guard"
	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	testCases := []struct {
		name      string
		write     guard.Write
		forbidden bool
	}{
		{name: "append transaction allowed", write: guard.Write{Kind: guard.AppendTransaction}},
		{name: "append payout allowed", write: guard.Write{Kind: guard.AppendPayout}},
		{name: "rollup persistence allowed", write: guard.Write{Kind: guard.SetRollups}},

		{name: "pending to completed allowed", write: guard.Write{Kind: guard.SetTransactionStatus, FromStatus: "PENDING", ToStatus: "COMPLETED"}},
		{name: "pending to failed allowed", write: guard.Write{Kind: guard.SetPayoutStatus, FromStatus: "PENDING", ToStatus: "FAILED"}},
		{name: "pending to cancelled allowed", write: guard.Write{Kind: guard.SetPayoutStatus, FromStatus: "PENDING", ToStatus: "CANCELLED"}},
		{name: "completed is terminal", write: guard.Write{Kind: guard.SetPayoutStatus, FromStatus: "COMPLETED", ToStatus: "CANCELLED"}, forbidden: true},
		{name: "failed is terminal", write: guard.Write{Kind: guard.SetTransactionStatus, FromStatus: "FAILED", ToStatus: "COMPLETED"}, forbidden: true},
		{name: "cancelled is terminal", write: guard.Write{Kind: guard.SetPayoutStatus, FromStatus: "CANCELLED", ToStatus: "COMPLETED"}, forbidden: true},
		{name: "transition to pending rejected", write: guard.Write{Kind: guard.SetTransactionStatus, FromStatus: "PENDING", ToStatus: "PENDING"}, forbidden: true},
		{name: "transition to unknown rejected", write: guard.Write{Kind: guard.SetTransactionStatus, FromStatus: "PENDING", ToStatus: "ARCHIVED"}, forbidden: true},

		{name: "backfill onto empty id allowed", write: guard.Write{Kind: guard.AttachSourceEvent, NewSourceEventID: "evt1"}},
		{name: "backfill onto linked row rejected", write: guard.Write{Kind: guard.AttachSourceEvent, ExistingSourceEventID: "evt0", NewSourceEventID: "evt1"}, forbidden: true},
		{name: "backfill without id rejected", write: guard.Write{Kind: guard.AttachSourceEvent}, forbidden: true},

		{name: "duplicate removal with survivor allowed", write: guard.Write{Kind: guard.RemoveDuplicateTransaction, HasSurvivingTwin: true}},
		{name: "duplicate removal without survivor rejected", write: guard.Write{Kind: guard.RemoveDuplicateTransaction}, forbidden: true},

		{name: "replace rejected", write: guard.Write{Kind: guard.ReplaceTransaction}, forbidden: true},
		{name: "remove rejected", write: guard.Write{Kind: guard.RemoveTransaction}, forbidden: true},

		{name: "delete empty account allowed", write: guard.Write{Kind: guard.DeleteAccount}},
		{name: "delete account with transactions rejected", write: guard.Write{Kind: guard.DeleteAccount, TransactionCount: 1}, forbidden: true},
		{name: "delete account with payouts rejected", write: guard.Write{Kind: guard.DeleteAccount, PayoutCount: 1}, forbidden: true},

		{name: "unknown kind rejected", write: guard.Write{Kind: guard.WriteKind("UPSERT")}, forbidden: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.Check(tc.write)
			if tc.forbidden {
				assert.ErrorIs(t, err, apperrors.ErrForbidden)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckAccountDelete(t *testing.T) {
	assert.NoError(t, guard.CheckAccountDelete(0, 0))
	assert.ErrorIs(t, guard.CheckAccountDelete(1, 0), apperrors.ErrForbidden)
	assert.ErrorIs(t, guard.CheckAccountDelete(0, 1), apperrors.ErrForbidden)
	assert.ErrorIs(t, guard.CheckAccountDelete(3, 2), apperrors.ErrForbidden)
}
