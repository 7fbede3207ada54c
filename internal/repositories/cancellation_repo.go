package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/models"
)

type CancellationRepo struct {
	pool *pgxpool.Pool
}

func NewCancellationRepo(pool *pgxpool.Pool) *CancellationRepo {
	return &CancellationRepo{pool: pool}
}

const cancellationColumns = `id, booking_id, cancelled_by, cancelling_party, reason, days_before_event,
	policy_tier, total_paid, organizer_refund, artist_compensation, platform_retained, currency, created_at`

func scanCancellation(row pgx.Row) (*models.CancellationRecord, error) {
	var c models.CancellationRecord
	err := row.Scan(&c.ID, &c.BookingID, &c.CancelledBy, &c.CancellingParty, &c.Reason, &c.DaysBeforeEvent,
		&c.PolicyTier, &c.TotalPaid, &c.OrganizerRefund, &c.ArtistCompensation, &c.PlatformRetained,
		&c.Currency, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("cancellation record not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts the cancellation record. At most one record can exist
// per booking; a second insert means the cancellation already ran.
func (r *CancellationRepo) Create(ctx context.Context, c *models.CancellationRecord) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cancellation_records (booking_id, cancelled_by, cancelling_party, reason, days_before_event,
			policy_tier, total_paid, organizer_refund, artist_compensation, platform_retained, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, c.BookingID, c.CancelledBy, c.CancellingParty, c.Reason, c.DaysBeforeEvent,
		c.PolicyTier, c.TotalPaid, c.OrganizerRefund, c.ArtistCompensation, c.PlatformRetained, c.Currency,
	).Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("booking %s is already cancelled", c.BookingID)
	}
	return err
}

func (r *CancellationRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.CancellationRecord, error) {
	return scanCancellation(r.pool.QueryRow(ctx,
		`SELECT `+cancellationColumns+` FROM cancellation_records WHERE booking_id = $1`, bookingID))
}
