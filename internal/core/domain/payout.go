package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the lifecycle state of a disbursement.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "PENDING"
	PayoutCompleted PayoutStatus = "COMPLETED"
	PayoutFailed    PayoutStatus = "FAILED"
	PayoutCancelled PayoutStatus = "CANCELLED"
)

// IsTerminal reports whether the status permits no further transition.
func (s PayoutStatus) IsTerminal() bool {
	switch s {
	case PayoutCompleted, PayoutFailed, PayoutCancelled:
		return true
	}
	return false
}

// Payout is a disbursement record. Each payout has exactly one linked
// PAYOUT-type transaction sharing its ReferenceNumber as the transaction's
// Reference; the two are kept status-synchronized.
type Payout struct {
	PayoutID        string          `json:"payoutID"` // Primary key (UUID)
	AccountID       string          `json:"accountID"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	PaymentMethod   string          `json:"paymentMethod"`
	RecipientID     string          `json:"recipientID"`
	RecipientName   string          `json:"recipientName"`
	ReferenceNumber string          `json:"referenceNumber"` // Globally unique, generated
	Status          PayoutStatus    `json:"status"`
	ProcessedBy     string          `json:"processedBy"`
	ProcessedAt     *time.Time      `json:"processedAt,omitempty"`
	Notes           string          `json:"notes"`
	AuditFields
}
