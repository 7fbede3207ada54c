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

type OpportunityRepo struct {
	pool *pgxpool.Pool
}

func NewOpportunityRepo(pool *pgxpool.Pool) *OpportunityRepo {
	return &OpportunityRepo{pool: pool}
}

const opportunityColumns = `id, organizer_id, venue_id, title, description, event_date, slot_category,
	budget_min, budget_max, currency, genres, application_deadline, status, created_at, updated_at`

func scanOpportunity(row pgx.Row) (*models.Opportunity, error) {
	var o models.Opportunity
	err := row.Scan(&o.ID, &o.OrganizerID, &o.VenueID, &o.Title, &o.Description, &o.EventDate, &o.SlotCategory,
		&o.BudgetMin, &o.BudgetMax, &o.Currency, &o.Genres, &o.ApplicationDeadline, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("opportunity not found")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OpportunityRepo) Create(ctx context.Context, o *models.Opportunity) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO opportunities (organizer_id, venue_id, title, description, event_date, slot_category,
			budget_min, budget_max, currency, genres, application_deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, o.OrganizerID, o.VenueID, o.Title, o.Description, o.EventDate, o.SlotCategory,
		o.BudgetMin, o.BudgetMax, o.Currency, o.Genres, o.ApplicationDeadline, o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (r *OpportunityRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	return scanOpportunity(r.pool.QueryRow(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id))
}

// UpdateStatusFrom flips status only when the row is still in one of
// the expected states; reports whether a row changed.
func (r *OpportunityRepo) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE opportunities SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type OpportunityFilter struct {
	OrganizerID *uuid.UUID
	Status      *string
	Genre       *string
	Limit       int
	Offset      int
}

func (r *OpportunityRepo) List(ctx context.Context, f OpportunityFilter) ([]models.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities`
	args := []any{}
	where := []string{}
	argIdx := 1

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
	if f.Genre != nil {
		where = append(where, fmt.Sprintf("$%d = ANY(genres)", argIdx))
		args = append(args, *f.Genre)
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
	query += fmt.Sprintf(" ORDER BY event_date ASC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
