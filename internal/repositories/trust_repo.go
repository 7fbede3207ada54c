package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/models"
)

type TrustRepo struct {
	pool *pgxpool.Pool
}

func NewTrustRepo(pool *pgxpool.Pool) *TrustRepo {
	return &TrustRepo{pool: pool}
}

// Init creates the score row if absent and returns the current row
// either way.
func (r *TrustRepo) Init(ctx context.Context, userID uuid.UUID, score int, tier string) (*models.TrustScore, error) {
	var t models.TrustScore
	err := r.pool.QueryRow(ctx, `
		INSERT INTO trust_scores (user_id, score, tier)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET user_id = trust_scores.user_id
		RETURNING user_id, score, tier, updated_at
	`, userID, score, tier).Scan(&t.UserID, &t.Score, &t.Tier, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TrustRepo) Get(ctx context.Context, userID uuid.UUID) (*models.TrustScore, error) {
	var t models.TrustScore
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, score, tier, updated_at FROM trust_scores WHERE user_id = $1
	`, userID).Scan(&t.UserID, &t.Score, &t.Tier, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("trust score for user %s not found", userID)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ApplyDelta updates the score and appends the history entry in one
// transaction. The row is locked to serialize concurrent deltas.
func (r *TrustRepo) ApplyDelta(ctx context.Context, userID uuid.UUID, apply func(current int) (next int, tier string), ev *models.TrustEvent) (*models.TrustScore, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var current int
	err = tx.QueryRow(ctx, `SELECT score FROM trust_scores WHERE user_id = $1 FOR UPDATE`, userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("trust score for user %s not found", userID)
	}
	if err != nil {
		return nil, err
	}

	next, tier := apply(current)

	var t models.TrustScore
	err = tx.QueryRow(ctx, `
		UPDATE trust_scores SET score = $1, tier = $2, updated_at = now()
		WHERE user_id = $3
		RETURNING user_id, score, tier, updated_at
	`, next, tier, userID).Scan(&t.UserID, &t.Score, &t.Tier, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	ev.ScoreAfter = next
	err = tx.QueryRow(ctx, `
		INSERT INTO trust_events (user_id, delta, score_after, reason_code, meta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, ev.UserID, ev.Delta, ev.ScoreAfter, ev.ReasonCode, ev.Meta).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TrustRepo) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.TrustEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, delta, score_after, reason_code, meta, created_at
		FROM trust_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TrustEvent
	for rows.Next() {
		var e models.TrustEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.ScoreAfter, &e.ReasonCode, &e.Meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastActivity returns the newest trust event time for decay purposes,
// falling back to the score row's updated_at.
func (r *TrustRepo) LastActivity(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	var at time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT max(created_at) FROM trust_events WHERE user_id = $1),
			(SELECT updated_at FROM trust_scores WHERE user_id = $1)
		)
	`, userID).Scan(&at)
	return at, err
}
