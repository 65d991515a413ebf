package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfessionalRepository struct {
	pool *pgxpool.Pool
}

func NewProfessionalRepository(pool *pgxpool.Pool) *ProfessionalRepository {
	return &ProfessionalRepository{pool: pool}
}

// GetByID fetches a professional, nil when missing
func (r *ProfessionalRepository) GetByID(ctx context.Context, id int64) (*model.Professional, error) {
	query := `
		SELECT id, name, speciality, is_active, user_id, created_at, updated_at
		FROM professionals
		WHERE id = $1
	`

	var p model.Professional
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Speciality,
		&p.IsActive,
		&p.UserID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get professional by id: %w", err)
	}

	return &p, nil
}

// ListActive returns all professionals accepting new bookings
func (r *ProfessionalRepository) ListActive(ctx context.Context) ([]*model.Professional, error) {
	query := `
		SELECT id, name, speciality, is_active, user_id, created_at, updated_at
		FROM professionals
		WHERE is_active
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active professionals: %w", err)
	}
	defer rows.Close()

	var out []*model.Professional
	for rows.Next() {
		var p model.Professional
		err := rows.Scan(&p.ID, &p.Name, &p.Speciality, &p.IsActive, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan professional: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate professionals: %w", err)
	}

	return out, nil
}

// SetActive flips the active flag. Deactivation stops new bookings but never
// touches historical appointments.
func (r *ProfessionalRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE professionals
		SET is_active = $1, updated_at = now()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("set professional active: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("professional not found")
	}

	return nil
}
