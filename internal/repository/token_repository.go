package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tokenColumns = `token, appointment_id, kind, email, expires_at, consumed_at, created_at`

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func scanToken(row pgx.Row) (*model.AppointmentToken, error) {
	var t model.AppointmentToken
	err := row.Scan(
		&t.Token,
		&t.AppointmentID,
		&t.Kind,
		&t.Email,
		&t.ExpiresAt,
		&t.ConsumedAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// insertToken writes a token row through q (pool or transaction)
func insertToken(ctx context.Context, q base.Querier, t *model.AppointmentToken) error {
	query := `
		INSERT INTO appointment_tokens (token, appointment_id, kind, email, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query, t.Token, t.AppointmentID, t.Kind, t.Email, t.ExpiresAt).
		Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment token: %w", err)
	}

	return nil
}

// Get fetches a token by its UUID, nil when missing
func (r *TokenRepository) Get(ctx context.Context, token uuid.UUID) (*model.AppointmentToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM appointment_tokens WHERE token = $1`

	t, err := scanToken(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get token: %w", err)
	}

	return t, nil
}

// Insert adds one token row
func (r *TokenRepository) Insert(ctx context.Context, t *model.AppointmentToken) error {
	return insertToken(ctx, r.pool, t)
}

// FindReusable returns the newest unconsumed, unexpired token of the same
// appointment, kind and recipient, or nil. Reusing one is a convenience of
// the issuing side, not an invariant.
func (r *TokenRepository) FindReusable(ctx context.Context, appointmentID int64, kind model.TokenKind, email string, now time.Time) (*model.AppointmentToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM appointment_tokens
		WHERE appointment_id = $1
		  AND kind = $2
		  AND email = $3
		  AND consumed_at IS NULL
		  AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1
	`

	t, err := scanToken(r.pool.QueryRow(ctx, query, appointmentID, kind, email, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find reusable token: %w", err)
	}

	return t, nil
}

// Consume marks the token consumed and applies the appointment transition in
// one transaction. The conditional update on consumed_at IS NULL is the
// atomic arbiter: of two concurrent redemptions exactly one affects a row,
// the other gets base.ErrTokenConsumed.
func (r *TokenRepository) Consume(ctx context.Context, token uuid.UUID, newStatus model.AppointmentStatus, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var appointmentID int64
	err = tx.QueryRow(ctx, `
		UPDATE appointment_tokens
		SET consumed_at = $2
		WHERE token = $1 AND consumed_at IS NULL
		RETURNING appointment_id
	`, token, now).Scan(&appointmentID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return base.ErrTokenConsumed
		}
		return fmt.Errorf("consume token: %w", err)
	}

	var (
		setConfirmed string
		action       string
	)
	if newStatus == model.AppointmentConfirmed {
		setConfirmed = ", confirmed_at = $3"
		action = model.AuditActionConfirm
	} else {
		setConfirmed = ""
		action = model.AuditActionCancel
	}

	query := `UPDATE appointments SET status = $1, updated_at = $3` + setConfirmed + ` WHERE id = $2`
	result, err := tx.Exec(ctx, query, newStatus, appointmentID, now)
	if err != nil {
		return fmt.Errorf("transition appointment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	rec := &model.AuditLog{Action: action, Entity: "appointment", EntityID: &appointmentID}
	if err := insertAudit(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
