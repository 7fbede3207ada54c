package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/models"
)

type BookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

const bookingColumns = `id, opportunity_id, application_id, artist_id, organizer_id, venue_id,
	event_date, slot_category, agreed_fee, currency, commission_bps, status, version,
	artist_confirmed_at, organizer_confirmed_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.OpportunityID, &b.ApplicationID, &b.ArtistID, &b.OrganizerID, &b.VenueID,
		&b.EventDate, &b.SlotCategory, &b.AgreedFee, &b.Currency, &b.CommissionBPS, &b.Status, &b.Version,
		&b.ArtistConfirmedAt, &b.OrganizerConfirmedAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("booking not found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts the booking. The unique constraint on opportunity_id
// guarantees at most one booking per opportunity.
func (r *BookingRepo) Create(ctx context.Context, b *models.Booking) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (opportunity_id, application_id, artist_id, organizer_id, venue_id,
			event_date, slot_category, agreed_fee, currency, commission_bps, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version, created_at, updated_at
	`, b.OpportunityID, b.ApplicationID, b.ArtistID, b.OrganizerID, b.VenueID,
		b.EventDate, b.SlotCategory, b.AgreedFee, b.Currency, b.CommissionBPS, b.Status,
	).Scan(&b.ID, &b.Version, &b.CreatedAt, &b.UpdatedAt)

	if isUniqueViolation(err) {
		return apperr.Conflict("a booking for this opportunity already exists")
	}
	return err
}

func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

// UpdateStatusVersioned is the optimistic concurrency point for the
// orchestrator: the write lands only if nobody moved the booking since
// it was read. Reports whether the version matched.
func (r *BookingRepo) UpdateStatusVersioned(ctx context.Context, id uuid.UUID, version int, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`, to, id, version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetConfirmation stamps one party's completion confirmation. The
// timestamp is only written once.
func (r *BookingRepo) SetConfirmation(ctx context.Context, id uuid.UUID, party models.Party) (*models.Booking, error) {
	column := "organizer_confirmed_at"
	if party == models.PartyArtist {
		column = "artist_confirmed_at"
	}
	return scanBooking(r.pool.QueryRow(ctx, `
		UPDATE bookings SET `+column+` = COALESCE(`+column+`, now()), updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns, id))
}

type BookingFilter struct {
	ArtistID    *uuid.UUID
	OrganizerID *uuid.UUID
	Status      *string
	Limit       int
	Offset      int
}

func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	args := []any{}
	where := []string{}
	argIdx := 1

	if f.ArtistID != nil {
		where = append(where, fmt.Sprintf("artist_id = $%d", argIdx))
		args = append(args, *f.ArtistID)
		argIdx++
	}
	if f.OrganizerID != nil {
		where = append(where, fmt.Sprintf("organizer_id = $%d", argIdx))
		args = append(args, *f.OrganizerID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// CompletedCount backs the completion milestone bonuses.
func (r *BookingRepo) CompletedCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM bookings
		WHERE status = $1 AND (artist_id = $2 OR organizer_id = $2)
	`, models.BookingStatusCompleted, userID).Scan(&n)
	return n, err
}

// InProgressPastEvent finds confirmed bookings whose event date has
// passed, for the worker to move into in_progress.
func (r *BookingRepo) ConfirmedPastEventDate(ctx context.Context) ([]models.Booking, error) {
	return r.queryBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1 AND event_date < now()
	`, models.BookingStatusConfirmed)
}

// AwaitingConfirmationBeyond finds in-progress bookings past the dual
// confirmation window, for escalation to disputed.
func (r *BookingRepo) AwaitingConfirmationBeyond(ctx context.Context, windowSeconds int) ([]models.Booking, error) {
	return r.queryBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1
		  AND (artist_confirmed_at IS NULL OR organizer_confirmed_at IS NULL)
		  AND event_date + ($2 || ' seconds')::interval < now()
	`, models.BookingStatusInProgress, fmt.Sprintf("%d", windowSeconds))
}

func (r *BookingRepo) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
