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

type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

const applicationColumns = `id, opportunity_id, artist_id, proposed_fee, currency, message, status, created_at, updated_at`

func scanApplication(row pgx.Row) (*models.Application, error) {
	var a models.Application
	err := row.Scan(&a.ID, &a.OpportunityID, &a.ArtistID, &a.ProposedFee, &a.Currency, &a.Message, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("application not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateWithLimit inserts the application only while the artist's
// pending count is below maxPending. The count and the insert run in
// one transaction under a per-artist advisory lock, so a concurrent
// submission by the same artist waits and then sees this row in its
// count. A plain count-inside-insert is not enough: under READ
// COMMITTED two statements can each snapshot a count that excludes the
// other's uncommitted row. A duplicate (artist, opportunity) pair
// surfaces as a conflict via the unique constraint.
func (r *ApplicationRepo) CreateWithLimit(ctx context.Context, a *models.Application, maxPending int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1::text))`, a.ArtistID,
	); err != nil {
		return err
	}

	var pending int
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM applications
		WHERE artist_id = $1 AND status = ANY($2)
	`, a.ArtistID, models.PendingApplicationStatuses).Scan(&pending); err != nil {
		return err
	}
	if err := checkPendingRoom(pending, maxPending); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO applications (opportunity_id, artist_id, proposed_fee, currency, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, a.OpportunityID, a.ArtistID, a.ProposedFee, a.Currency, a.Message, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if isUniqueViolation(err) {
		return apperr.Conflict("an application for this opportunity already exists")
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// checkPendingRoom is the tier-cap decision CreateWithLimit applies
// under the advisory lock.
func checkPendingRoom(pending, maxPending int) error {
	if pending >= maxPending {
		return apperr.LimitExceeded("pending application limit of %d reached", maxPending)
	}
	return nil
}

func (r *ApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return scanApplication(r.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
}

// UpdateStatusFrom performs the optimistic status-guarded transition.
func (r *ApplicationRepo) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeclineSiblings closes every other live application on the
// opportunity once one is accepted.
func (r *ApplicationRepo) DeclineSiblings(ctx context.Context, opportunityID, acceptedID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications SET status = $1, updated_at = now()
		WHERE opportunity_id = $2 AND id != $3 AND status = ANY($4)
	`, models.ApplicationStatusDeclined, opportunityID, acceptedID,
		models.PendingApplicationStatuses)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ArtistBookedOn reports whether the artist already holds a live
// booking on the given calendar date.
func (r *ApplicationRepo) ArtistBookedOn(ctx context.Context, artistID uuid.UUID, eventDate string) (bool, error) {
	var booked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE artist_id = $1 AND event_date::date = $2::date
			  AND status NOT IN ('cancelled')
		)
	`, artistID, eventDate).Scan(&booked)
	return booked, err
}

func (r *ApplicationRepo) CountPending(ctx context.Context, artistID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM applications WHERE artist_id = $1 AND status = ANY($2)
	`, artistID, models.PendingApplicationStatuses).Scan(&n)
	return n, err
}

type ApplicationFilter struct {
	OpportunityID *uuid.UUID
	ArtistID      *uuid.UUID
	Status        *string
	Limit         int
	Offset        int
}

func (r *ApplicationRepo) List(ctx context.Context, f ApplicationFilter) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	args := []any{}
	where := []string{}
	argIdx := 1

	if f.OpportunityID != nil {
		where = append(where, fmt.Sprintf("opportunity_id = $%d", argIdx))
		args = append(args, *f.OpportunityID)
		argIdx++
	}
	if f.ArtistID != nil {
		where = append(where, fmt.Sprintf("artist_id = $%d", argIdx))
		args = append(args, *f.ArtistID)
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

	var out []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
