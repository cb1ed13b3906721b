// Package accounting holds the pure balance-calculation logic shared by
// services and repositories. Recompute is the single source of truth for an
// account's balance; no other code path may increment or decrement it.
package accounting

import (
	"sort"
	"time"

	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/utils/money"
)

// SignedMinorUnits returns the balance effect of a transaction in minor
// units: commissions add, penalties and payouts subtract, adjustments add as
// signed corrections.
func SignedMinorUnits(txn domain.Transaction) int64 {
	amount := money.ToMinorUnits(txn.Amount)
	switch txn.Type {
	case domain.TypeCommission, domain.TypeAdjustment:
		return amount
	case domain.TypePenalty, domain.TypePayout:
		return -amount
	}
	return 0
}

// Recompute rebuilds the denormalized rollups on the account and the
// per-transaction running balances, in place, from the full transaction list.
// Only COMPLETED entries move the balance; other entries still receive the
// running balance as of the last completed entry so they display sensibly.
// Deterministic for a given transaction list: entries are sorted by Date
// ascending with a stable tie-break.
func Recompute(account *domain.Account, txns []domain.Transaction) {
	sorted := make([]*domain.Transaction, len(txns))
	for i := range txns {
		sorted[i] = &txns[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var (
		balance        int64
		commissions    int64
		penalties      int64
		payouts        int64
		lastCommission *time.Time
		lastPayout     *time.Time
	)

	for _, txn := range sorted {
		if txn.Status == domain.StatusCompleted {
			balance += SignedMinorUnits(*txn)
			switch txn.Type {
			case domain.TypeCommission:
				commissions += money.ToMinorUnits(txn.Amount)
				d := txn.Date
				if lastCommission == nil || d.After(*lastCommission) {
					lastCommission = &d
				}
			case domain.TypePenalty:
				penalties += money.ToMinorUnits(txn.Amount)
			case domain.TypePayout:
				payouts += money.ToMinorUnits(txn.Amount)
				d := txn.Date
				if lastPayout == nil || d.After(*lastPayout) {
					lastPayout = &d
				}
			}
		}
		txn.RunningBalance = money.FromMinorUnits(balance)
	}

	account.RunningBalance = money.FromMinorUnits(balance)
	account.TotalCommissions = money.FromMinorUnits(commissions)
	account.TotalPenalties = money.FromMinorUnits(penalties)
	account.TotalPayouts = money.FromMinorUnits(payouts)
	account.LastCommissionDate = lastCommission
	account.LastPayoutDate = lastPayout
}
