package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uqActiveSlot is the partial unique index on (professional_id, starts_at)
// filtered to active statuses. A 23505 on exactly this constraint is the
// authoritative "lost the booking race" signal; anything else propagates.
const uqActiveSlot = "uq_appt_prof_start_active"

const appointmentColumns = `
	id, student_id, professional_id, service, location, status,
	starts_at, ends_at, confirmed_at, cancellation_reason, reminder_sent_at,
	created_at, updated_at
`

// AppointmentRepository is the only writer of appointment rows. The
// transactional create/reschedule writes bundle the required side effects
// (audit row, token rows) so the booking is all-or-nothing.
type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var ap model.Appointment
	err := row.Scan(
		&ap.ID,
		&ap.StudentID,
		&ap.ProfessionalID,
		&ap.Service,
		&ap.Location,
		&ap.Status,
		&ap.StartsAt,
		&ap.EndsAt,
		&ap.ConfirmedAt,
		&ap.CancellationReason,
		&ap.ReminderSentAt,
		&ap.CreatedAt,
		&ap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func scanAppointments(rows pgx.Rows) ([]*model.Appointment, error) {
	defer rows.Close()

	var out []*model.Appointment
	for rows.Next() {
		ap, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, ap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return out, nil
}

// GetByID fetches an appointment, nil when missing
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	ap, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return ap, nil
}

// BusyBetween returns the non-cancelled appointments of a professional whose
// interval intersects [from, to).
func (r *AppointmentRepository) BusyBetween(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE professional_id = $1
		  AND status <> 'CANCELLED'
		  AND starts_at < $3
		  AND ends_at > $2
		ORDER BY starts_at
	`

	rows, err := r.pool.Query(ctx, query, professionalID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get busy appointments: %w", err)
	}

	return scanAppointments(rows)
}

// BusyOverlapping is BusyBetween with one appointment excluded, used by the
// reschedule conflict check to ignore the row being moved.
func (r *AppointmentRepository) BusyOverlapping(ctx context.Context, professionalID int64, from, to time.Time, excludeID int64) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE professional_id = $1
		  AND status <> 'CANCELLED'
		  AND id <> $4
		  AND starts_at < $3
		  AND ends_at > $2
		ORDER BY starts_at
	`

	rows, err := r.pool.Query(ctx, query, professionalID, from, to, excludeID)
	if err != nil {
		return nil, fmt.Errorf("get overlapping appointments: %w", err)
	}

	return scanAppointments(rows)
}

// ByStudent returns a student's appointments, newest first
func (r *AppointmentRepository) ByStudent(ctx context.Context, studentID int64) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE student_id = $1
		ORDER BY starts_at DESC
	`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get appointments by student: %w", err)
	}

	return scanAppointments(rows)
}

// CreateScheduled persists a new SCHEDULED appointment together with its
// audit record and confirmation tokens in one transaction. Returns
// base.ErrSlotTaken when a concurrent booking won the race on the
// active-slot unique index.
func (r *AppointmentRepository) CreateScheduled(ctx context.Context, ap *model.Appointment, rec *model.AuditLog, tokens []*model.AppointmentToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO appointments (student_id, professional_id, service, location, status, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(
		ctx, query,
		ap.StudentID,
		ap.ProfessionalID,
		ap.Service,
		ap.Location,
		ap.Status,
		ap.StartsAt,
		ap.EndsAt,
	).Scan(&ap.ID, &ap.CreatedAt, &ap.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, uqActiveSlot) {
			return base.ErrSlotTaken
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	rec.EntityID = &ap.ID
	if err := insertAudit(ctx, tx, rec); err != nil {
		return err
	}

	for _, t := range tokens {
		t.AppointmentID = ap.ID
		if err := insertToken(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if base.IsUniqueViolation(err, uqActiveSlot) {
			return base.ErrSlotTaken
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Reschedule moves an appointment's interval in place. Identity and status
// are preserved; only starts_at/ends_at change. Returns base.ErrSlotTaken on
// a uniqueness race, same as CreateScheduled.
func (r *AppointmentRepository) Reschedule(ctx context.Context, id int64, startsAt, endsAt time.Time, rec *model.AuditLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE appointments
		SET starts_at = $1, ends_at = $2, updated_at = now()
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, startsAt, endsAt, id)
	if err != nil {
		if base.IsUniqueViolation(err, uqActiveSlot) {
			return base.ErrSlotTaken
		}
		return fmt.Errorf("reschedule appointment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	rec.EntityID = &id
	if err := insertAudit(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if base.IsUniqueViolation(err, uqActiveSlot) {
			return base.ErrSlotTaken
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Cancel sets CANCELLED with an optional reason and writes the audit record
// in the same transaction.
func (r *AppointmentRepository) Cancel(ctx context.Context, id int64, reason *string, rec *model.AuditLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE appointments
		SET status = 'CANCELLED', cancellation_reason = $1, updated_at = now()
		WHERE id = $2
	`

	result, err := tx.Exec(ctx, query, reason, id)
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	rec.EntityID = &id
	if err := insertAudit(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DueForReminder returns active appointments starting inside [from, to)
// whose reminder has not been sent yet.
func (r *AppointmentRepository) DueForReminder(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status IN ('SCHEDULED', 'CONFIRMED')
		  AND reminder_sent_at IS NULL
		  AND starts_at >= $1
		  AND starts_at < $2
		ORDER BY starts_at
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get appointments due for reminder: %w", err)
	}

	return scanAppointments(rows)
}

// MarkReminderSent stamps reminder_sent_at
func (r *AppointmentRepository) MarkReminderSent(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE appointments
		SET reminder_sent_at = $1, updated_at = now()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}
