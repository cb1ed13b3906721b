package mapping

import (
	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/models"
)

// ToModelTransaction converts a domain transaction to its database representation.
func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID: d.TransactionID,
		AccountID:     d.AccountID,
		Type:          string(d.Type),
		Amount:        d.Amount,
		Date:          d.Date,
		Status:        string(d.Status),
		Reference:     d.Reference,
		SourceEventID: d.SourceEventID,
		Role:          string(d.Role),
		Description:   d.Description,
		Category:      d.Category,
		Notes:         d.Notes,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
		RunningBalance: d.RunningBalance,
	}
}

// ToDomainTransaction converts a database transaction back to the domain representation.
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		Type:          domain.TransactionType(m.Type),
		Amount:        m.Amount,
		Date:          m.Date,
		Status:        domain.TransactionStatus(m.Status),
		Reference:     m.Reference,
		SourceEventID: m.SourceEventID,
		Role:          domain.Role(m.Role),
		Description:   m.Description,
		Category:      m.Category,
		Notes:         m.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
		RunningBalance: m.RunningBalance,
	}
}

// ToDomainTransactionSlice converts a slice of database transactions.
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}
