package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/models"
)

// PaymentRepo owns milestones and payment records. Every mutation runs
// in a transaction that re-reads the booking's ledger rows under lock
// and re-checks the escrow conservation identity before committing.
type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const milestoneColumns = `id, booking_id, kind, amount, currency, due_date, escrow_status,
	released_amount, refunded_amount, gateway_intent_id, funded_at, settled_at, created_at, updated_at`

func scanMilestone(row pgx.Row) (*models.PaymentMilestone, error) {
	var m models.PaymentMilestone
	err := row.Scan(&m.ID, &m.BookingID, &m.Kind, &m.Amount, &m.Currency, &m.DueDate, &m.EscrowStatus,
		&m.ReleasedAmount, &m.RefundedAmount, &m.GatewayIntentID, &m.FundedAt, &m.SettledAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("payment milestone not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreatePlan inserts a booking's milestones atomically after checking
// the creation invariant.
func (r *PaymentRepo) CreatePlan(ctx context.Context, milestones []models.PaymentMilestone, agreedFee decimal.Decimal) error {
	if err := models.ValidateMilestonePlan(milestones, agreedFee); err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range milestones {
		m := &milestones[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO payment_milestones (booking_id, kind, amount, currency, due_date, escrow_status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, released_amount, refunded_amount, created_at, updated_at
		`, m.BookingID, m.Kind, m.Amount, m.Currency, m.DueDate, m.EscrowStatus,
		).Scan(&m.ID, &m.ReleasedAmount, &m.RefundedAmount, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PaymentRepo) GetMilestone(ctx context.Context, id uuid.UUID) (*models.PaymentMilestone, error) {
	return scanMilestone(r.pool.QueryRow(ctx,
		`SELECT `+milestoneColumns+` FROM payment_milestones WHERE id = $1`, id))
}

func (r *PaymentRepo) ListMilestones(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentMilestone, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+milestoneColumns+` FROM payment_milestones WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMilestones(rows)
}

func collectMilestones(rows pgx.Rows) ([]models.PaymentMilestone, error) {
	var out []models.PaymentMilestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *PaymentRepo) ListRecords(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, milestone_id, kind, amount, currency, gateway_tx_id, reason, created_at
		FROM payment_records WHERE booking_id = $1 ORDER BY created_at
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(&p.ID, &p.BookingID, &p.MilestoneID, &p.Kind, &p.Amount, &p.Currency,
			&p.GatewayTxID, &p.Reason, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PaymentRepo) SetIntentID(ctx context.Context, milestoneID uuid.UUID, intentID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payment_milestones SET gateway_intent_id = $1, updated_at = now() WHERE id = $2
	`, intentID, milestoneID)
	return err
}

// RecordCharge confirms escrow funding for a milestone: inserts the
// charge record and flips the milestone pending→held atomically.
// Duplicate gateway tx ids are a no-op (the webhook may be redelivered);
// the milestone is returned either way.
func (r *PaymentRepo) RecordCharge(ctx context.Context, milestoneID uuid.UUID, amount decimal.Decimal, currency, gatewayTxID string) (*models.PaymentMilestone, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	m, err := scanMilestone(tx.QueryRow(ctx,
		`SELECT `+milestoneColumns+` FROM payment_milestones WHERE id = $1 FOR UPDATE`, milestoneID))
	if err != nil {
		return nil, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payment_records (booking_id, milestone_id, kind, amount, currency, gateway_tx_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.BookingID, m.ID, models.PaymentRecordCharge, amount, currency, gatewayTxID)
	if isUniqueViolation(err) {
		// Duplicate confirmation: already applied, nothing changes.
		return m, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if m.EscrowStatus != models.EscrowStatusPending {
		return nil, false, apperr.State("milestone %s is %s, not awaiting payment", m.ID, m.EscrowStatus)
	}
	if !amount.Equal(m.Amount) {
		return nil, false, apperr.Validation("confirmed amount %s does not match milestone amount %s", amount, m.Amount)
	}

	now := time.Now()
	m.EscrowStatus = models.EscrowStatusHeld
	m.FundedAt = &now
	_, err = tx.Exec(ctx, `
		UPDATE payment_milestones SET escrow_status = $1, funded_at = now(), updated_at = now()
		WHERE id = $2
	`, models.EscrowStatusHeld, m.ID)
	if err != nil {
		return nil, false, err
	}

	if err := r.reconcileInTx(ctx, tx, m.BookingID); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// Release moves a held milestone to released with its full amount
// allocated to the payout side.
func (r *PaymentRepo) Release(ctx context.Context, milestoneID uuid.UUID) (*models.PaymentMilestone, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	m, err := scanMilestone(tx.QueryRow(ctx,
		`SELECT `+milestoneColumns+` FROM payment_milestones WHERE id = $1 FOR UPDATE`, milestoneID))
	if err != nil {
		return nil, err
	}
	if m.Escrowed() && m.EscrowStatus != models.EscrowStatusHeld {
		return nil, apperr.State("milestone %s is %s, only held funds can be released", m.ID, m.EscrowStatus)
	}

	_, err = tx.Exec(ctx, `
		UPDATE payment_milestones
		SET escrow_status = $1, released_amount = amount, settled_at = now(), updated_at = now()
		WHERE id = $2
	`, models.EscrowStatusReleased, m.ID)
	if err != nil {
		return nil, err
	}

	if err := r.reconcileInTx(ctx, tx, m.BookingID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	m.EscrowStatus = models.EscrowStatusReleased
	m.ReleasedAmount = m.Amount
	return m, nil
}

// Refund returns refundAmount of a held milestone; the remainder, if
// any, is allocated to the release side in the same step. Creates the
// offsetting negative record.
func (r *PaymentRepo) Refund(ctx context.Context, milestoneID uuid.UUID, refundAmount decimal.Decimal, gatewayTxID string, reason *string) (*models.PaymentMilestone, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	m, err := scanMilestone(tx.QueryRow(ctx,
		`SELECT `+milestoneColumns+` FROM payment_milestones WHERE id = $1 FOR UPDATE`, milestoneID))
	if err != nil {
		return nil, err
	}
	if m.EscrowStatus != models.EscrowStatusHeld {
		return nil, apperr.State("milestone %s is %s, only held funds can be refunded", m.ID, m.EscrowStatus)
	}
	if refundAmount.IsNegative() {
		return nil, apperr.Validation("refund amount must not be negative")
	}
	if refundAmount.GreaterThan(m.Amount) {
		return nil, apperr.EscrowIntegrity("refund %s exceeds milestone amount %s", refundAmount, m.Amount)
	}

	released := m.Amount.Sub(refundAmount)
	status := models.EscrowStatusReturned
	if refundAmount.IsZero() {
		status = models.EscrowStatusReleased
	}

	_, err = tx.Exec(ctx, `
		UPDATE payment_milestones
		SET escrow_status = $1, refunded_amount = $2, released_amount = $3, settled_at = now(), updated_at = now()
		WHERE id = $4
	`, status, refundAmount, released, m.ID)
	if err != nil {
		return nil, err
	}

	if refundAmount.IsPositive() {
		_, err = tx.Exec(ctx, `
			INSERT INTO payment_records (booking_id, milestone_id, kind, amount, currency, gateway_tx_id, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, m.BookingID, m.ID, models.PaymentRecordRefund, refundAmount.Neg(), m.Currency, gatewayTxID, reason)
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("refund %s already recorded", gatewayTxID)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := r.reconcileInTx(ctx, tx, m.BookingID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	m.EscrowStatus = status
	m.RefundedAmount = refundAmount
	m.ReleasedAmount = released
	return m, nil
}

// reconcileInTx re-checks the conservation identity inside the mutating
// transaction: a violation rolls the whole mutation back.
func (r *PaymentRepo) reconcileInTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) error {
	rows, err := tx.Query(ctx,
		`SELECT `+milestoneColumns+` FROM payment_milestones WHERE booking_id = $1`, bookingID)
	if err != nil {
		return err
	}
	milestones, err := collectMilestones(rows)
	rows.Close()
	if err != nil {
		return err
	}

	prows, err := tx.Query(ctx, `
		SELECT id, booking_id, milestone_id, kind, amount, currency, gateway_tx_id, reason, created_at
		FROM payment_records WHERE booking_id = $1
	`, bookingID)
	if err != nil {
		return err
	}
	var payments []models.PaymentRecord
	for prows.Next() {
		var p models.PaymentRecord
		if err := prows.Scan(&p.ID, &p.BookingID, &p.MilestoneID, &p.Kind, &p.Amount, &p.Currency,
			&p.GatewayTxID, &p.Reason, &p.CreatedAt); err != nil {
			prows.Close()
			return err
		}
		payments = append(payments, p)
	}
	prows.Close()
	if err := prows.Err(); err != nil {
		return err
	}

	return models.Reconcile(milestones, payments)
}

// DueReminders finds pending escrow milestones past their due date.
func (r *PaymentRepo) DueReminders(ctx context.Context) ([]models.PaymentMilestone, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+milestoneColumns+` FROM payment_milestones
		WHERE escrow_status = $1 AND due_date IS NOT NULL AND due_date < now() AND kind != $2
	`, models.EscrowStatusPending, models.MilestoneKindCommission)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMilestones(rows)
}
