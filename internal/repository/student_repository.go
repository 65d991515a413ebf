package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StudentRepository struct {
	pool *pgxpool.Pool
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID fetches a student, nil when missing
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	query := `
		SELECT id, name, guardian_user_id, notes, created_at, updated_at
		FROM students
		WHERE id = $1
	`

	var st model.Student
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&st.ID,
		&st.Name,
		&st.GuardianUserID,
		&st.Notes,
		&st.CreatedAt,
		&st.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return &st, nil
}

// GetByGuardian returns all students of one guardian user
func (r *StudentRepository) GetByGuardian(ctx context.Context, guardianUserID int64) ([]*model.Student, error) {
	query := `
		SELECT id, name, guardian_user_id, notes, created_at, updated_at
		FROM students
		WHERE guardian_user_id = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, guardianUserID)
	if err != nil {
		return nil, fmt.Errorf("get students by guardian: %w", err)
	}
	defer rows.Close()

	var out []*model.Student
	for rows.Next() {
		var st model.Student
		err := rows.Scan(&st.ID, &st.Name, &st.GuardianUserID, &st.Notes, &st.CreatedAt, &st.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	return out, nil
}
