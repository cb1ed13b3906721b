package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the database representation of a ledger entry.
type Transaction struct {
	TransactionID string          `db:"transaction_id"`
	AccountID     string          `db:"account_id"`
	Type          string          `db:"type"`
	Amount        decimal.Decimal `db:"amount"`
	Date          time.Time       `db:"date"`
	Status        string          `db:"status"`
	Reference     string          `db:"reference"`
	SourceEventID string          `db:"source_event_id"`
	Role          string          `db:"role"`
	Description   string          `db:"description"`
	Category      string          `db:"category"`
	Notes         string          `db:"notes"`
	AuditFields

	RunningBalance decimal.Decimal `db:"running_balance"`
}
