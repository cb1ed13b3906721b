package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeCommission TransactionType = "COMMISSION"
	TypePenalty    TransactionType = "PENALTY"
	TypePayout     TransactionType = "PAYOUT"
	TypeAdjustment TransactionType = "ADJUSTMENT"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// IsTerminal reports whether the status permits no further transition.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Role identifies the commission lane a split payment was posted under.
// Unsplit payments carry RoleNone.
type Role string

const (
	RoleNone         Role = ""
	RoleOwner        Role = "OWNER"
	RoleCollaborator Role = "COLLABORATOR"
)

// legacy reference suffixes, kept only for matching pre-split data.
const (
	legacyOwnerSuffix        = "-owner"
	legacyCollaboratorSuffix = "-collaborator"
)

// RoleFromLegacyReference parses the role out of an old-style suffixed
// reference ("p1-owner", "p1-collaborator"). New code stores the role in an
// explicit field; this exists solely so legacy rows can be matched and
// migrated.
func RoleFromLegacyReference(ref string) Role {
	switch {
	case strings.HasSuffix(ref, legacyOwnerSuffix):
		return RoleOwner
	case strings.HasSuffix(ref, legacyCollaboratorSuffix):
		return RoleCollaborator
	}
	return RoleNone
}

// LegacyBaseReference strips a legacy role suffix off a reference, returning
// the bare source event id an old-style row was posted under.
func LegacyBaseReference(ref string) string {
	ref = strings.TrimSuffix(ref, legacyOwnerSuffix)
	return strings.TrimSuffix(ref, legacyCollaboratorSuffix)
}

// QualifiedReference builds the dedup reference for a source event lane:
// role-suffixed when the event is split, the bare event id otherwise.
func QualifiedReference(sourceEventID string, role Role) string {
	switch role {
	case RoleOwner:
		return sourceEventID + legacyOwnerSuffix
	case RoleCollaborator:
		return sourceEventID + legacyCollaboratorSuffix
	}
	return sourceEventID
}

// Transaction is a single dated ledger entry. Once COMPLETED it is immutable
// except for the one permitted status transition and the denormalized
// RunningBalance, which the balance calculator recomputes wholesale.
type Transaction struct {
	TransactionID string            `json:"transactionID"` // Primary key (UUID)
	AccountID     string            `json:"accountID"`     // FK -> Account.accountID
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"` // Non-negative
	Date          time.Time         `json:"date"`
	Status        TransactionStatus `json:"status"`
	Reference     string            `json:"reference"`     // Optional dedup key; unique per account when set
	SourceEventID string            `json:"sourceEventID"` // Optional originating payment id; stronger dedup key
	Role          Role              `json:"role"`          // Split-commission lane, if any
	Description   string            `json:"description"`
	Category      string            `json:"category"` // Free-form, penalties only
	Notes         string            `json:"notes"`
	AuditFields

	RunningBalance decimal.Decimal `json:"runningBalance"` // Balance through this entry, recomputed
}
