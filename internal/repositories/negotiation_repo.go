package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/models"
)

type NegotiationRepo struct {
	pool *pgxpool.Pool
}

func NewNegotiationRepo(pool *pgxpool.Pool) *NegotiationRepo {
	return &NegotiationRepo{pool: pool}
}

func (r *NegotiationRepo) Create(ctx context.Context, n *models.Negotiation) error {
	termsBytes, err := json.Marshal(n.CurrentTerms)
	if err != nil {
		return err
	}
	historyBytes, err := json.Marshal(n.History)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO negotiations (application_id, artist_id, organizer_id, round, status, last_offer_by,
			current_terms, original_fee, history, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, n.ApplicationID, n.ArtistID, n.OrganizerID, n.Round, n.Status, n.LastOfferBy,
		termsBytes, n.OriginalFee, historyBytes, n.Deadline,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)

	if isUniqueViolation(err) {
		return apperr.Conflict("a negotiation for this application already exists")
	}
	return err
}

const negotiationColumns = `id, application_id, artist_id, organizer_id, round, status, last_offer_by,
	current_terms, original_fee, history, deadline, created_at, updated_at`

func scanNegotiation(row pgx.Row) (*models.Negotiation, error) {
	var n models.Negotiation
	var termsBytes, historyBytes []byte
	err := row.Scan(&n.ID, &n.ApplicationID, &n.ArtistID, &n.OrganizerID, &n.Round, &n.Status, &n.LastOfferBy,
		&termsBytes, &n.OriginalFee, &historyBytes, &n.Deadline, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("negotiation not found")
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(termsBytes, &n.CurrentTerms); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(historyBytes, &n.History); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NegotiationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	return scanNegotiation(r.pool.QueryRow(ctx,
		`SELECT `+negotiationColumns+` FROM negotiations WHERE id = $1`, id))
}

func (r *NegotiationRepo) GetByApplicationID(ctx context.Context, applicationID uuid.UUID) (*models.Negotiation, error) {
	return scanNegotiation(r.pool.QueryRow(ctx,
		`SELECT `+negotiationColumns+` FROM negotiations WHERE application_id = $1`, applicationID))
}

// SaveFrom persists a mutated negotiation, guarded on the status it was
// read in. Reports whether the row was still in fromStatus.
func (r *NegotiationRepo) SaveFrom(ctx context.Context, n *models.Negotiation, fromStatus string) (bool, error) {
	termsBytes, err := json.Marshal(n.CurrentTerms)
	if err != nil {
		return false, err
	}
	historyBytes, err := json.Marshal(n.History)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE negotiations
		SET round = $1, status = $2, last_offer_by = $3, current_terms = $4, history = $5,
		    deadline = $6, updated_at = now()
		WHERE id = $7 AND status = $8
	`, n.Round, n.Status, n.LastOfferBy, termsBytes, historyBytes, n.Deadline, n.ID, fromStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireDue transitions every live negotiation whose deadline has
// passed. Safe to run repeatedly: only non-terminal rows move.
func (r *NegotiationRepo) ExpireDue(ctx context.Context) ([]models.Negotiation, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE negotiations SET status = $1, updated_at = now()
		WHERE deadline < now() AND status IN ($2, $3)
		RETURNING `+negotiationColumns, models.NegotiationStatusExpired,
		models.NegotiationStatusPendingArtist, models.NegotiationStatusPendingOrganizer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// CloseByApplication declines the live negotiation hanging off an
// application, if one exists. Returns nil, nil when there was nothing
// live to close.
func (r *NegotiationRepo) CloseByApplication(ctx context.Context, applicationID uuid.UUID) (*models.Negotiation, error) {
	n, err := scanNegotiation(r.pool.QueryRow(ctx, `
		UPDATE negotiations SET status = $1, updated_at = now()
		WHERE application_id = $2 AND status IN ($3, $4)
		RETURNING `+negotiationColumns,
		models.NegotiationStatusDeclined, applicationID,
		models.NegotiationStatusPendingArtist, models.NegotiationStatusPendingOrganizer))
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	return n, err
}

// MarkExpired is the lazy single-record variant of ExpireDue.
func (r *NegotiationRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE negotiations SET status = $1, updated_at = now()
		WHERE id = $2 AND status IN ($3, $4)
	`, models.NegotiationStatusExpired, id,
		models.NegotiationStatusPendingArtist, models.NegotiationStatusPendingOrganizer)
	return err
}
