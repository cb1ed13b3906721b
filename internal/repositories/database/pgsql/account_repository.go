package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/core/guard"
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
	"github.com/estateops/agentledger/internal/models"
	"github.com/estateops/agentledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAccountRepository struct {
	BaseRepository
}

// NewAccountRepository creates a new repository for subject ledger accounts.
func NewAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountRepository = (*PgxAccountRepository)(nil)

const accountColumns = `
	account_id, subject_id, company_id, name, contact_email, is_active,
	created_at, created_by, last_updated_at, last_updated_by,
	running_balance, total_commissions, total_penalties, total_payouts,
	last_commission_date, last_payout_date`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.SubjectID,
		&m.CompanyID,
		&m.Name,
		&m.ContactEmail,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.RunningBalance,
		&m.TotalCommissions,
		&m.TotalPenalties,
		&m.TotalPayouts,
		&m.LastCommissionDate,
		&m.LastPayoutDate,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Save inserts a new account.
func (r *PgxAccountRepository) Save(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.AccountID,
		m.SubjectID,
		m.CompanyID,
		m.Name,
		m.ContactEmail,
		m.IsActive,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.RunningBalance,
		m.TotalCommissions,
		m.TotalPenalties,
		m.TotalPayouts,
		m.LastCommissionDate,
		m.LastPayoutDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account for subject %s already exists", apperrors.ErrDuplicate, m.SubjectID)
		}
		return fmt.Errorf("failed to save account %s: %w", m.AccountID, err)
	}
	return nil
}

// FindBySubjectID retrieves the account for a subject.
func (r *PgxAccountRepository) FindBySubjectID(ctx context.Context, subjectID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE subject_id = $1;`

	m, err := scanAccount(r.Pool.QueryRow(ctx, query, subjectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account for subject %s: %w", subjectID, err)
	}

	account := mapping.ToDomainAccount(*m)
	return &account, nil
}

// FindBySubjectIDs retrieves accounts for multiple subjects, keyed by subject id.
func (r *PgxAccountRepository) FindBySubjectIDs(ctx context.Context, subjectIDs []string) (map[string]domain.Account, error) {
	if len(subjectIDs) == 0 {
		return map[string]domain.Account{}, nil
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE subject_id = ANY($1);`

	rows, err := r.Pool.Query(ctx, query, subjectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by subject IDs: %w", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account)
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row during batch fetch: %w", err)
		}
		accounts[m.SubjectID] = mapping.ToDomainAccount(*m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows during batch fetch: %w", err)
	}

	return accounts, nil
}

// ListSubjectIDsByCompany returns every subject with an active ledger under a company.
func (r *PgxAccountRepository) ListSubjectIDsByCompany(ctx context.Context, companyID string) ([]string, error) {
	query := `SELECT subject_id FROM accounts WHERE company_id = $1 AND is_active = TRUE ORDER BY subject_id;`

	rows, err := r.Pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects for company %s: %w", companyID, err)
	}
	defer rows.Close()

	subjectIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subject id for company %s: %w", companyID, err)
		}
		subjectIDs = append(subjectIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subject ids for company %s: %w", companyID, err)
	}

	return subjectIDs, nil
}

// SaveRollups persists the balance calculator's recomputed rollups. Derived
// data only; history columns are untouched.
func (r *PgxAccountRepository) SaveRollups(ctx context.Context, account domain.Account) error {
	if err := guard.Check(guard.Write{Kind: guard.SetRollups}); err != nil {
		return err
	}
	return saveRollups(ctx, r.Pool, account)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx, so the rollup update
// can run standalone or inside an append transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func saveRollups(ctx context.Context, db execer, account domain.Account) error {
	m := mapping.ToModelAccount(account)

	query := `
		UPDATE accounts
		SET running_balance = $2,
		    total_commissions = $3,
		    total_penalties = $4,
		    total_payouts = $5,
		    last_commission_date = $6,
		    last_payout_date = $7,
		    last_updated_at = $8,
		    last_updated_by = $9
		WHERE account_id = $1;
	`
	cmdTag, err := db.Exec(ctx, query,
		m.AccountID,
		m.RunningBalance,
		m.TotalCommissions,
		m.TotalPenalties,
		m.TotalPayouts,
		m.LastCommissionDate,
		m.LastPayoutDate,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to persist rollups for account "+m.AccountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account " + m.AccountID + " not found for rollup update")
	}
	return nil
}

// Delete removes an account document. Deletion of a ledger with any history
// is unconditionally rejected; the history count check runs first.
func (r *PgxAccountRepository) Delete(ctx context.Context, accountID string) error {
	var txnCount, payoutCount int
	countQuery := `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE account_id = $1),
			(SELECT COUNT(*) FROM payouts WHERE account_id = $1);
	`
	if err := r.Pool.QueryRow(ctx, countQuery, accountID).Scan(&txnCount, &payoutCount); err != nil {
		return apperrors.NewAppError(500, "failed to count ledger history for account "+accountID, err)
	}

	if err := guard.CheckAccountDelete(txnCount, payoutCount); err != nil {
		return err
	}

	cmdTag, err := r.Pool.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1;`, accountID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete account "+accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
