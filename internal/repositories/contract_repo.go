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

type ContractRepo struct {
	pool *pgxpool.Pool
}

func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool}
}

const contractColumns = `id, booking_id, status, terms, signing_deadline,
	artist_signed_at, organizer_signed_at, document_url, created_at, updated_at`

func scanContract(row pgx.Row) (*models.Contract, error) {
	var c models.Contract
	var termsBytes []byte
	err := row.Scan(&c.ID, &c.BookingID, &c.Status, &termsBytes, &c.SigningDeadline,
		&c.ArtistSignedAt, &c.OrganizerSignedAt, &c.DocumentURL, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("contract not found")
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(termsBytes, &c.Terms); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepo) Create(ctx context.Context, c *models.Contract) error {
	termsBytes, err := json.Marshal(c.Terms)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO contracts (booking_id, status, terms, signing_deadline, document_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, c.BookingID, c.Status, termsBytes, c.SigningDeadline, c.DocumentURL,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return scanContract(r.pool.QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id))
}

func (r *ContractRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Contract, error) {
	return scanContract(r.pool.QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE booking_id = $1`, bookingID))
}

// RecordSignature stamps one party's signature and flips status, only
// while the contract is still awaiting that party.
func (r *ContractRepo) RecordSignature(ctx context.Context, id uuid.UUID, party models.Party, fromStatus, toStatus string) (bool, error) {
	column := "organizer_signed_at"
	if party == models.PartyArtist {
		column = "artist_signed_at"
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE contracts SET status = $1, `+column+` = now(), updated_at = now()
		WHERE id = $2 AND status = $3
	`, toStatus, id, fromStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ContractRepo) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contracts SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ContractRepo) SetDocumentURL(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx, `UPDATE contracts SET document_url = $1, updated_at = now() WHERE id = $2`, url, id)
	return err
}

// ExpireDue flips every pending contract past its signing deadline and
// returns them so the orchestrator can cascade the booking
// cancellation. Idempotent: expired rows do not match again.
func (r *ContractRepo) ExpireDue(ctx context.Context) ([]models.Contract, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE contracts SET status = $1, updated_at = now()
		WHERE signing_deadline < now() AND status IN ($2, $3)
		RETURNING `+contractColumns,
		models.ContractStatusExpired, models.ContractStatusPendingArtist, models.ContractStatusPendingOrganizer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
