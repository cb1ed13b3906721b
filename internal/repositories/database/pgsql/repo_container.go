package pgsql

import (
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryContainer bundles all pgsql-backed repositories.
type RepositoryContainer struct {
	Accounts     portsrepo.AccountRepository
	Transactions portsrepo.TransactionRepository
	Payouts      portsrepo.PayoutRepository
	SourceEvents portsrepo.SourceEventRepository
}

// NewRepositoryContainer wires every repository onto a shared pool.
func NewRepositoryContainer(pool *pgxpool.Pool) *RepositoryContainer {
	return &RepositoryContainer{
		Accounts:     NewAccountRepository(pool),
		Transactions: NewTransactionRepository(pool),
		Payouts:      NewPayoutRepository(pool),
		SourceEvents: NewSourceEventRepository(pool),
	}
}
