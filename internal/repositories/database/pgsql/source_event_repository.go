package pgsql

import (
	"context"
	"errors"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxSourceEventRepository reads the externally owned source payments table.
// The payments collaborator writes it; this module only ever selects.
type PgxSourceEventRepository struct {
	BaseRepository
}

// NewSourceEventRepository creates a read-only adapter over source payments.
func NewSourceEventRepository(pool *pgxpool.Pool) portsrepo.SourceEventRepository {
	return &PgxSourceEventRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.SourceEventRepository = (*PgxSourceEventRepository)(nil)

const sourceEventColumns = `
	id, amount, status, payment_date, reference_number, is_provisional,
	is_in_suspense, commission_finalized, recipient_id, recipient_share,
	split_owner_id, split_owner_share, split_collaborator_id, split_collaborator_share`

func scanSourceEvent(row pgx.Row) (*domain.SourceEvent, error) {
	var (
		e                 domain.SourceEvent
		finalized         *bool
		ownerID           *string
		ownerShare        *decimal.Decimal
		collaboratorID    *string
		collaboratorShare *decimal.Decimal
	)
	err := row.Scan(
		&e.ID,
		&e.Amount,
		&e.Status,
		&e.PaymentDate,
		&e.ReferenceNumber,
		&e.IsProvisional,
		&e.IsInSuspense,
		&finalized,
		&e.RecipientID,
		&e.Commission.RecipientShare,
		&ownerID,
		&ownerShare,
		&collaboratorID,
		&collaboratorShare,
	)
	if err != nil {
		return nil, err
	}
	e.CommissionFinalized = finalized
	if ownerID != nil || collaboratorID != nil {
		split := &domain.CommissionSplit{}
		if ownerID != nil {
			split.OwnerID = *ownerID
		}
		if ownerShare != nil {
			split.OwnerShare = *ownerShare
		}
		if collaboratorID != nil {
			split.CollaboratorID = *collaboratorID
		}
		if collaboratorShare != nil {
			split.CollaboratorShare = *collaboratorShare
		}
		e.Commission.Split = split
	}
	return &e, nil
}

// FindByID returns a single source payment.
func (r *PgxSourceEventRepository) FindByID(ctx context.Context, eventID string) (*domain.SourceEvent, error) {
	query := `SELECT ` + sourceEventColumns + ` FROM source_payments WHERE id = $1;`

	event, err := scanSourceEvent(r.Pool.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find source payment "+eventID, err)
	}
	return event, nil
}

// FindByRecipientID returns every source payment naming the subject as
// primary recipient or split lane recipient.
func (r *PgxSourceEventRepository) FindByRecipientID(ctx context.Context, recipientID string) ([]domain.SourceEvent, error) {
	query := `
		SELECT ` + sourceEventColumns + `
		FROM source_payments
		WHERE recipient_id = $1 OR split_owner_id = $1 OR split_collaborator_id = $1
		ORDER BY payment_date;
	`
	rows, err := r.Pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query source payments for recipient "+recipientID, err)
	}
	defer rows.Close()

	events := []domain.SourceEvent{}
	for rows.Next() {
		e, err := scanSourceEvent(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan source payment row for recipient "+recipientID, err)
		}
		events = append(events, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating source payment rows for recipient "+recipientID, err)
	}

	return events, nil
}

// ListRecipientIDsByCompany returns every distinct recipient of a company's
// source payments, for sweep fan-out.
func (r *PgxSourceEventRepository) ListRecipientIDsByCompany(ctx context.Context, companyID string) ([]string, error) {
	query := `
		SELECT DISTINCT recipient_id FROM source_payments WHERE company_id = $1
		UNION
		SELECT DISTINCT split_owner_id FROM source_payments WHERE company_id = $1 AND split_owner_id IS NOT NULL
		UNION
		SELECT DISTINCT split_collaborator_id FROM source_payments WHERE company_id = $1 AND split_collaborator_id IS NOT NULL;
	`
	rows, err := r.Pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list payment recipients for company "+companyID, err)
	}
	defer rows.Close()

	recipientIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan recipient id for company "+companyID, err)
		}
		recipientIDs = append(recipientIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating recipient ids for company "+companyID, err)
	}

	return recipientIDs, nil
}
