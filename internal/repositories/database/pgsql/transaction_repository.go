package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/core/guard"
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
	"github.com/estateops/agentledger/internal/models"
	"github.com/estateops/agentledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxTransactionRepository struct {
	BaseRepository
}

// NewTransactionRepository creates a new repository for the transaction log.
func NewTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepository {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionRepository = (*PgxTransactionRepository)(nil)

const transactionColumns = `
	transaction_id, account_id, type, amount, date, status, reference,
	source_event_id, role, description, category, notes,
	created_at, created_by, last_updated_at, last_updated_by, running_balance`

const insertTransactionQuery = `
	INSERT INTO transactions (` + transactionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.AccountID,
		&m.Type,
		&m.Amount,
		&m.Date,
		&m.Status,
		&m.Reference,
		&m.SourceEventID,
		&m.Role,
		&m.Description,
		&m.Category,
		&m.Notes,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.RunningBalance,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func insertTransaction(ctx context.Context, db execer, txn domain.Transaction) error {
	if err := guard.Check(guard.Write{Kind: guard.AppendTransaction}); err != nil {
		return err
	}
	m := mapping.ToModelTransaction(txn)

	_, err := db.Exec(ctx, insertTransactionQuery,
		m.TransactionID,
		m.AccountID,
		m.Type,
		m.Amount,
		m.Date,
		m.Status,
		m.Reference,
		m.SourceEventID,
		m.Role,
		m.Description,
		m.Category,
		m.Notes,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.RunningBalance,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transaction for reference %q already recorded", apperrors.ErrDuplicate, m.Reference)
		}
		return apperrors.NewAppError(500, "failed to insert transaction "+m.TransactionID, err)
	}
	return nil
}

// AppendTransaction appends one new ledger entry.
func (r *PgxTransactionRepository) AppendTransaction(ctx context.Context, txn domain.Transaction) error {
	return insertTransaction(ctx, r.Pool, txn)
}

// AppendWithRollups appends one entry and persists the recomputed rollups in
// a single database transaction, so a mid-failure never leaves the rollups
// credited without the corresponding ledger entry or vice versa.
func (r *PgxTransactionRepository) AppendWithRollups(ctx context.Context, txn domain.Transaction, account domain.Account) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	// Lock the account row so concurrent appends serialize.
	var lockedID string
	err = tx.QueryRow(ctx, `SELECT account_id FROM accounts WHERE account_id = $1 FOR UPDATE;`, account.AccountID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("account " + account.AccountID + " not found for append")
		}
		return apperrors.NewAppError(500, "failed to lock account "+account.AccountID, err)
	}

	if err := insertTransaction(ctx, tx, txn); err != nil {
		return err
	}

	if err := guard.Check(guard.Write{Kind: guard.SetRollups}); err != nil {
		return err
	}
	if err := saveRollups(ctx, tx, account); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// ListByAccountID returns the full transaction log for an account.
func (r *PgxTransactionRepository) ListByAccountID(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1 ORDER BY date, created_at;`

	rows, err := r.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query transactions for account "+accountID, err)
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan transaction row for account "+accountID, err)
		}
		txns = append(txns, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating transaction rows for account "+accountID, err)
	}

	return mapping.ToDomainTransactionSlice(txns), nil
}

// UpdateStatus transitions a transaction's status field. The current status
// is read under lock and classified by the guard before the write.
func (r *PgxTransactionRepository) UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, updatedBy string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM transactions WHERE transaction_id = $1 FOR UPDATE;`, transactionID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("transaction " + transactionID + " not found for status update")
		}
		return apperrors.NewAppError(500, "failed to read status of transaction "+transactionID, err)
	}

	if err := guard.Check(guard.Write{
		Kind:       guard.SetTransactionStatus,
		FromStatus: current,
		ToStatus:   string(status),
	}); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE transactions
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE transaction_id = $1;
	`, transactionID, status, now, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update status of transaction "+transactionID, err)
	}

	return r.Commit(ctx, tx)
}

// UpdateStatusByReference transitions the transaction linked to a payout via
// its reference number.
func (r *PgxTransactionRepository) UpdateStatusByReference(ctx context.Context, accountID, reference string, status domain.TransactionStatus, updatedBy string, now time.Time) error {
	var transactionID string
	err := r.Pool.QueryRow(ctx, `
		SELECT transaction_id FROM transactions
		WHERE account_id = $1 AND reference = $2;
	`, accountID, reference).Scan(&transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("no transaction with reference " + reference + " on account " + accountID)
		}
		return apperrors.NewAppError(500, "failed to resolve transaction by reference "+reference, err)
	}
	return r.UpdateStatus(ctx, transactionID, status, updatedBy, now)
}

// AttachSourceEvent backfills a missing source event id onto a legacy
// transaction and normalizes its reference and role. The guard only permits
// this when the existing id is empty: enrichment, never rewrite.
func (r *PgxTransactionRepository) AttachSourceEvent(ctx context.Context, transactionID, sourceEventID, reference string, role domain.Role, updatedBy string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	var existing string
	err = tx.QueryRow(ctx, `SELECT source_event_id FROM transactions WHERE transaction_id = $1 FOR UPDATE;`, transactionID).Scan(&existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("transaction " + transactionID + " not found for backfill")
		}
		return apperrors.NewAppError(500, "failed to read transaction "+transactionID+" for backfill", err)
	}

	if err := guard.Check(guard.Write{
		Kind:                  guard.AttachSourceEvent,
		ExistingSourceEventID: existing,
		NewSourceEventID:      sourceEventID,
	}); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE transactions
		SET source_event_id = $2, reference = $3, role = $4, last_updated_at = $5, last_updated_by = $6
		WHERE transaction_id = $1;
	`, transactionID, sourceEventID, reference, role, now, updatedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: source event %s already linked on this account", apperrors.ErrDuplicate, sourceEventID)
		}
		return apperrors.NewAppError(500, "failed to backfill source event onto transaction "+transactionID, err)
	}

	return r.Commit(ctx, tx)
}

// SaveRunningBalances persists recomputed per-transaction running balances.
func (r *PgxTransactionRepository) SaveRunningBalances(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	if err := guard.Check(guard.Write{Kind: guard.SetRollups}); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, txn := range txns {
		batch.Queue(`
			UPDATE transactions SET running_balance = $2 WHERE transaction_id = $1;
		`, txn.TransactionID, txn.RunningBalance)
	}

	br := r.Pool.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to persist running balances", err)
	}
	return nil
}

// RemoveDuplicates drops exact-duplicate entries found by the dedup sweep.
// Every removal must name a surviving twin on the same account; anything else
// is rejected by the guard before any row is touched.
func (r *PgxTransactionRepository) RemoveDuplicates(ctx context.Context, removals []portsrepo.DuplicateRemoval) error {
	if len(removals) == 0 {
		return nil
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	for _, removal := range removals {
		var survivorAccount, removedAccount string
		err := tx.QueryRow(ctx, `
			SELECT s.account_id, d.account_id
			FROM transactions s, transactions d
			WHERE s.transaction_id = $1 AND d.transaction_id = $2;
		`, removal.SurvivorID, removal.TransactionID).Scan(&survivorAccount, &removedAccount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Survivor or duplicate already gone; a prior sweep converged.
				continue
			}
			return apperrors.NewAppError(500, "failed to verify duplicate pair for removal", err)
		}

		if err := guard.Check(guard.Write{
			Kind:             guard.RemoveDuplicateTransaction,
			HasSurvivingTwin: survivorAccount == removedAccount,
		}); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1;`, removal.TransactionID); err != nil {
			return apperrors.NewAppError(500, "failed to remove duplicate transaction "+removal.TransactionID, err)
		}
	}

	return r.Commit(ctx, tx)
}
