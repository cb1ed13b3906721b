package dto

import (
	"time"

	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AddPenaltyRequest records a deduction against a subject's ledger.
type AddPenaltyRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Date        time.Time       `json:"date" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category"`
	Notes       string          `json:"notes"`
}

// CreatePayoutRequest asks for a disbursement against the available balance.
type CreatePayoutRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
	RecipientID   string          `json:"recipientID" validate:"required"`
	RecipientName string          `json:"recipientName" validate:"required"`
	Notes         string          `json:"notes"`
}

// UpdatePayoutStatusRequest transitions a pending payout to a terminal state.
type UpdatePayoutStatusRequest struct {
	Status domain.PayoutStatus `json:"status" validate:"required,oneof=COMPLETED FAILED CANCELLED"`
	Notes  string              `json:"notes"`
}

// TransactionResponse is a ledger entry as seen by external callers. Money
// crosses this boundary as decimal strings.
type TransactionResponse struct {
	TransactionID  string    `json:"transactionID"`
	Type           string    `json:"type"`
	Amount         string    `json:"amount"`
	Date           time.Time `json:"date"`
	Status         string    `json:"status"`
	Reference      string    `json:"reference,omitempty"`
	SourceEventID  string    `json:"sourceEventID,omitempty"`
	Role           string    `json:"role,omitempty"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	RunningBalance string    `json:"runningBalance"`
}

// PayoutResponse is a disbursement record as seen by external callers.
type PayoutResponse struct {
	PayoutID        string     `json:"payoutID"`
	Amount          string     `json:"amount"`
	Date            time.Time  `json:"date"`
	PaymentMethod   string     `json:"paymentMethod"`
	RecipientID     string     `json:"recipientID"`
	RecipientName   string     `json:"recipientName"`
	ReferenceNumber string     `json:"referenceNumber"`
	Status          string     `json:"status"`
	ProcessedBy     string     `json:"processedBy,omitempty"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// AccountSummary is the per-subject read model.
type AccountSummary struct {
	SubjectID          string                `json:"subjectID"`
	Name               string                `json:"name"`
	RunningBalance     string                `json:"runningBalance"`
	TotalCommissions   string                `json:"totalIncome"`
	TotalPenalties     string                `json:"totalExpenses"`
	TotalPayouts       string                `json:"totalPayouts"`
	LastCommissionDate *time.Time            `json:"lastIncomeDate,omitempty"`
	LastPayoutDate     *time.Time            `json:"lastPayoutDate,omitempty"`
	Transactions       []TransactionResponse `json:"transactions"`
	Payouts            []PayoutResponse      `json:"payouts"`
}

// AcknowledgementDocument carries everything an external renderer needs to
// produce a payout acknowledgement.
type AcknowledgementDocument struct {
	Payout         PayoutResponse `json:"payout"`
	SubjectName    string         `json:"subjectName"`
	SubjectContact string         `json:"subjectContact"`
}
