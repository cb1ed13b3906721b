package services

import (
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
	portssvc "github.com/estateops/agentledger/internal/core/ports/services"
	"github.com/estateops/agentledger/internal/platform/config"
)

// ServiceContainer holds all service facades.
type ServiceContainer struct {
	Ledger         portssvc.LedgerSvcFacade
	Payouts        portssvc.PayoutSvcFacade
	Reconciliation portssvc.ReconciliationSvcFacade
}

// Repositories names the storage dependencies the services need.
type Repositories struct {
	Accounts     portsrepo.AccountRepository
	Transactions portsrepo.TransactionRepository
	Payouts      portsrepo.PayoutRepository
	SourceEvents portsrepo.SourceEventRepository
}

// NewServiceContainer wires every service onto the given repositories.
func NewServiceContainer(repos Repositories, cfg *config.Config) *ServiceContainer {
	return &ServiceContainer{
		Ledger:         NewLedgerService(repos.Accounts, repos.Transactions, repos.Payouts),
		Payouts:        NewPayoutService(repos.Accounts, repos.Transactions, repos.Payouts),
		Reconciliation: NewReconciliationService(repos.Accounts, repos.Transactions, repos.SourceEvents, cfg),
	}
}
