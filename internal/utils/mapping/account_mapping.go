package mapping

import (
	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/models"
)

// ToModelAccount converts a domain account to its database representation.
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:    d.AccountID,
		SubjectID:    d.SubjectID,
		CompanyID:    d.CompanyID,
		Name:         d.Name,
		ContactEmail: d.ContactEmail,
		IsActive:     d.IsActive,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
		RunningBalance:     d.RunningBalance,
		TotalCommissions:   d.TotalCommissions,
		TotalPenalties:     d.TotalPenalties,
		TotalPayouts:       d.TotalPayouts,
		LastCommissionDate: d.LastCommissionDate,
		LastPayoutDate:     d.LastPayoutDate,
	}
}

// ToDomainAccount converts a database account back to the domain representation.
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:    m.AccountID,
		SubjectID:    m.SubjectID,
		CompanyID:    m.CompanyID,
		Name:         m.Name,
		ContactEmail: m.ContactEmail,
		IsActive:     m.IsActive,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
		RunningBalance:     m.RunningBalance,
		TotalCommissions:   m.TotalCommissions,
		TotalPenalties:     m.TotalPenalties,
		TotalPayouts:       m.TotalPayouts,
		LastCommissionDate: m.LastCommissionDate,
		LastPayoutDate:     m.LastPayoutDate,
	}
}
