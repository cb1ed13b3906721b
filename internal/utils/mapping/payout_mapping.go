package mapping

import (
	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/models"
)

// ToModelPayout converts a domain payout to its database representation.
func ToModelPayout(d domain.Payout) models.Payout {
	return models.Payout{
		PayoutID:        d.PayoutID,
		AccountID:       d.AccountID,
		Amount:          d.Amount,
		Date:            d.Date,
		PaymentMethod:   d.PaymentMethod,
		RecipientID:     d.RecipientID,
		RecipientName:   d.RecipientName,
		ReferenceNumber: d.ReferenceNumber,
		Status:          string(d.Status),
		ProcessedBy:     d.ProcessedBy,
		ProcessedAt:     d.ProcessedAt,
		Notes:           d.Notes,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

// ToDomainPayout converts a database payout back to the domain representation.
func ToDomainPayout(m models.Payout) domain.Payout {
	return domain.Payout{
		PayoutID:        m.PayoutID,
		AccountID:       m.AccountID,
		Amount:          m.Amount,
		Date:            m.Date,
		PaymentMethod:   m.PaymentMethod,
		RecipientID:     m.RecipientID,
		RecipientName:   m.RecipientName,
		ReferenceNumber: m.ReferenceNumber,
		Status:          domain.PayoutStatus(m.Status),
		ProcessedBy:     m.ProcessedBy,
		ProcessedAt:     m.ProcessedAt,
		Notes:           m.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

// ToDomainPayoutSlice converts a slice of database payouts.
func ToDomainPayoutSlice(ms []models.Payout) []domain.Payout {
	ds := make([]domain.Payout, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainPayout(m)
	}
	return ds
}
