package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceEventStatus is the lifecycle of an externally owned payment record.
type SourceEventStatus string

const (
	SourceEventCompleted SourceEventStatus = "COMPLETED"
	SourceEventPending   SourceEventStatus = "PENDING"
	SourceEventFailed    SourceEventStatus = "FAILED"
)

// CommissionSplit divides a commission between the owning agent and an
// introducing collaborator, each with their own share.
type CommissionSplit struct {
	OwnerID           string          `json:"ownerID"`
	OwnerShare        decimal.Decimal `json:"ownerShare"`
	CollaboratorID    string          `json:"collaboratorID"`
	CollaboratorShare decimal.Decimal `json:"collaboratorShare"`
}

// Commission is the commission block of a source event. Split is nil for
// single-recipient payments.
type Commission struct {
	RecipientShare decimal.Decimal  `json:"recipientShare"`
	Split          *CommissionSplit `json:"split,omitempty"`
}

// SourceEvent is an externally recorded financial event ("source payment").
// The external collaborator owns its lifecycle; the reconciliation engine
// only reads it. CommissionFinalized is a pointer because legacy events lack
// the flag entirely; absence means "assume finalized".
type SourceEvent struct {
	ID                  string            `json:"id"`
	Amount              decimal.Decimal   `json:"amount"`
	Status              SourceEventStatus `json:"status"`
	PaymentDate         time.Time         `json:"paymentDate"`
	ReferenceNumber     string            `json:"referenceNumber"`
	IsProvisional       bool              `json:"isProvisional"`
	IsInSuspense        bool              `json:"isInSuspense"`
	CommissionFinalized *bool             `json:"commissionFinalized,omitempty"`
	RecipientID         string            `json:"recipientID"`
	Commission          Commission        `json:"commission"`
}

// Eligible reports whether the event may be posted to the ledger: completed,
// not provisional, not in suspense, and commission finalized (or the flag is
// absent, which legacy data treats as finalized).
func (e SourceEvent) Eligible() bool {
	if e.Status != SourceEventCompleted {
		return false
	}
	if e.IsProvisional || e.IsInSuspense {
		return false
	}
	if e.CommissionFinalized != nil && !*e.CommissionFinalized {
		return false
	}
	return true
}
