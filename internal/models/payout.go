package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout is the database representation of a disbursement record.
type Payout struct {
	PayoutID        string          `db:"payout_id"`
	AccountID       string          `db:"account_id"`
	Amount          decimal.Decimal `db:"amount"`
	Date            time.Time       `db:"date"`
	PaymentMethod   string          `db:"payment_method"`
	RecipientID     string          `db:"recipient_id"`
	RecipientName   string          `db:"recipient_name"`
	ReferenceNumber string          `db:"reference_number"`
	Status          string          `db:"status"`
	ProcessedBy     string          `db:"processed_by"`
	ProcessedAt     *time.Time      `db:"processed_at"`
	Notes           string          `db:"notes"`
	AuditFields
}
