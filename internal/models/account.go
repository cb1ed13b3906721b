package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the database representation of a subject ledger.
type Account struct {
	AccountID    string `db:"account_id"`
	SubjectID    string `db:"subject_id"`
	CompanyID    string `db:"company_id"`
	Name         string `db:"name"`
	ContactEmail string `db:"contact_email"`
	IsActive     bool   `db:"is_active"`
	AuditFields

	RunningBalance     decimal.Decimal `db:"running_balance"`
	TotalCommissions   decimal.Decimal `db:"total_commissions"`
	TotalPenalties     decimal.Decimal `db:"total_penalties"`
	TotalPayouts       decimal.Decimal `db:"total_payouts"`
	LastCommissionDate *time.Time      `db:"last_commission_date"`
	LastPayoutDate     *time.Time      `db:"last_payout_date"`
}

// AuditFields holds standard audit columns shared by all ledger tables.
type AuditFields struct {
	CreatedAt     time.Time `db:"created_at"`
	CreatedBy     string    `db:"created_by"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
	LastUpdatedBy string    `db:"last_updated_by"`
}
