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

type PgxPayoutRepository struct {
	BaseRepository
}

// NewPayoutRepository creates a new repository for disbursement records.
func NewPayoutRepository(pool *pgxpool.Pool) portsrepo.PayoutRepository {
	return &PgxPayoutRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PayoutRepository = (*PgxPayoutRepository)(nil)

const payoutColumns = `
	payout_id, account_id, amount, date, payment_method, recipient_id,
	recipient_name, reference_number, status, processed_by, processed_at,
	notes, created_at, created_by, last_updated_at, last_updated_by`

func scanPayout(row pgx.Row) (*models.Payout, error) {
	var m models.Payout
	err := row.Scan(
		&m.PayoutID,
		&m.AccountID,
		&m.Amount,
		&m.Date,
		&m.PaymentMethod,
		&m.RecipientID,
		&m.RecipientName,
		&m.ReferenceNumber,
		&m.Status,
		&m.ProcessedBy,
		&m.ProcessedAt,
		&m.Notes,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AppendPayout appends one new disbursement record.
func (r *PgxPayoutRepository) AppendPayout(ctx context.Context, payout domain.Payout) error {
	if err := guard.Check(guard.Write{Kind: guard.AppendPayout}); err != nil {
		return err
	}
	m := mapping.ToModelPayout(payout)

	query := `
		INSERT INTO payouts (` + payoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.PayoutID,
		m.AccountID,
		m.Amount,
		m.Date,
		m.PaymentMethod,
		m.RecipientID,
		m.RecipientName,
		m.ReferenceNumber,
		m.Status,
		m.ProcessedBy,
		m.ProcessedAt,
		m.Notes,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: payout reference %s already exists", apperrors.ErrDuplicate, m.ReferenceNumber)
		}
		return apperrors.NewAppError(500, "failed to insert payout "+m.PayoutID, err)
	}
	return nil
}

// ListByAccountID returns all payouts for an account, newest first.
func (r *PgxPayoutRepository) ListByAccountID(ctx context.Context, accountID string) ([]domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE account_id = $1 ORDER BY date DESC, created_at DESC;`

	rows, err := r.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query payouts for account "+accountID, err)
	}
	defer rows.Close()

	payouts := []models.Payout{}
	for rows.Next() {
		m, err := scanPayout(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan payout row for account "+accountID, err)
		}
		payouts = append(payouts, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating payout rows for account "+accountID, err)
	}

	return mapping.ToDomainPayoutSlice(payouts), nil
}

// FindByID returns a payout scoped to an account.
func (r *PgxPayoutRepository) FindByID(ctx context.Context, accountID, payoutID string) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE account_id = $1 AND payout_id = $2;`

	m, err := scanPayout(r.Pool.QueryRow(ctx, query, accountID, payoutID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find payout "+payoutID, err)
	}

	payout := mapping.ToDomainPayout(*m)
	return &payout, nil
}

// UpdateStatus transitions a payout's status. The current status is read
// under lock and classified by the guard, so terminal payouts never move again.
func (r *PgxPayoutRepository) UpdateStatus(ctx context.Context, payoutID string, status domain.PayoutStatus, processedBy string, processedAt *time.Time, notes string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM payouts WHERE payout_id = $1 FOR UPDATE;`, payoutID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("payout " + payoutID + " not found for status update")
		}
		return apperrors.NewAppError(500, "failed to read status of payout "+payoutID, err)
	}

	if err := guard.Check(guard.Write{
		Kind:       guard.SetPayoutStatus,
		FromStatus: current,
		ToStatus:   string(status),
	}); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE payouts
		SET status = $2, processed_by = $3, processed_at = $4,
		    notes = COALESCE(NULLIF($5, ''), notes),
		    last_updated_at = $6, last_updated_by = $7
		WHERE payout_id = $1;
	`, payoutID, status, processedBy, processedAt, notes, now, processedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update status of payout "+payoutID, err)
	}

	return r.Commit(ctx, tx)
}
