package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the per-subject ledger aggregate: one per agent or property owner.
// The rollup fields are denormalized and always equal the sum over COMPLETED
// transactions of the corresponding type; they are recomputed wholesale by the
// balance calculator, never incremented piecemeal.
type Account struct {
	AccountID    string `json:"accountID"`    // Primary key (UUID)
	SubjectID    string `json:"subjectID"`    // Unique: the agent or owner this ledger belongs to
	CompanyID    string `json:"companyID"`    // Owning company, used for sweep fan-out
	Name         string `json:"name"`         // Denormalized display name
	ContactEmail string `json:"contactEmail"` // Denormalized contact cache
	IsActive     bool   `json:"isActive"`
	AuditFields

	RunningBalance     decimal.Decimal `json:"runningBalance"`
	TotalCommissions   decimal.Decimal `json:"totalCommissions"`
	TotalPenalties     decimal.Decimal `json:"totalPenalties"`
	TotalPayouts       decimal.Decimal `json:"totalPayouts"`
	LastCommissionDate *time.Time      `json:"lastCommissionDate,omitempty"`
	LastPayoutDate     *time.Time      `json:"lastPayoutDate,omitempty"`
}
