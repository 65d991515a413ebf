package repository

import (
	"context"
	"fmt"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AvailabilityRepository manages the recurring weekly windows. Times of day
// are stored as TIME columns in UTC, keyed by UTC weekday (0=Monday).
type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func clockToPg(c timeutil.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c.Minutes()) * 60 * 1_000_000, Valid: true}
}

func pgToClock(t pgtype.Time) timeutil.Clock {
	return timeutil.ClockFromMinutes(int(t.Microseconds / (60 * 1_000_000)))
}

func scanWindows(rows pgx.Rows) ([]model.AvailabilityWindow, error) {
	defer rows.Close()

	var out []model.AvailabilityWindow
	for rows.Next() {
		var (
			w          model.AvailabilityWindow
			start, end pgtype.Time
		)
		err := rows.Scan(&w.ProfessionalID, &w.Weekday, &start, &end, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		w.StartUTC = pgToClock(start)
		w.EndUTC = pgToClock(end)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability windows: %w", err)
	}

	return out, nil
}

// WindowsFor returns the windows of one UTC weekday ordered by start time
func (r *AvailabilityRepository) WindowsFor(ctx context.Context, professionalID int64, weekday int) ([]model.AvailabilityWindow, error) {
	query := `
		SELECT professional_id, weekday, starts_utc, ends_utc, created_at, updated_at
		FROM availability
		WHERE professional_id = $1 AND weekday = $2
		ORDER BY starts_utc
	`

	rows, err := r.pool.Query(ctx, query, professionalID, weekday)
	if err != nil {
		return nil, fmt.Errorf("get availability for weekday: %w", err)
	}

	return scanWindows(rows)
}

// AllWindows returns every window of the professional for slot scanning
func (r *AvailabilityRepository) AllWindows(ctx context.Context, professionalID int64) ([]model.AvailabilityWindow, error) {
	query := `
		SELECT professional_id, weekday, starts_utc, ends_utc, created_at, updated_at
		FROM availability
		WHERE professional_id = $1
		ORDER BY weekday, starts_utc
	`

	rows, err := r.pool.Query(ctx, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("get all availability: %w", err)
	}

	return scanWindows(rows)
}

// Insert adds one window
func (r *AvailabilityRepository) Insert(ctx context.Context, w model.AvailabilityWindow) error {
	query := `
		INSERT INTO availability (professional_id, weekday, starts_utc, ends_utc)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, w.ProfessionalID, w.Weekday, clockToPg(w.StartUTC), clockToPg(w.EndUTC))
	if err != nil {
		return fmt.Errorf("insert availability window: %w", err)
	}

	return nil
}

// ReplaceWeek atomically swaps the professional's whole weekly pattern
func (r *AvailabilityRepository) ReplaceWeek(ctx context.Context, professionalID int64, windows []model.AvailabilityWindow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM availability WHERE professional_id = $1`, professionalID)
	if err != nil {
		return fmt.Errorf("clear availability: %w", err)
	}

	for _, w := range windows {
		_, err = tx.Exec(ctx,
			`INSERT INTO availability (professional_id, weekday, starts_utc, ends_utc) VALUES ($1, $2, $3, $4)`,
			professionalID, w.Weekday, clockToPg(w.StartUTC), clockToPg(w.EndUTC),
		)
		if err != nil {
			return fmt.Errorf("insert availability window: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Delete removes one window by its composite identity
func (r *AvailabilityRepository) Delete(ctx context.Context, professionalID int64, weekday int, startUTC timeutil.Clock) error {
	query := `
		DELETE FROM availability
		WHERE professional_id = $1 AND weekday = $2 AND starts_utc = $3
	`

	result, err := r.pool.Exec(ctx, query, professionalID, weekday, clockToPg(startUTC))
	if err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("availability window not found")
	}

	return nil
}
