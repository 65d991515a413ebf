package service

import (
	"context"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
	"github.com/google/uuid"
)

// Store interfaces implemented by the pgx repositories. Services depend on
// these so the engine semantics stay unit-testable with in-memory stores.
// Implementations signal the two storage-arbitrated races with
// base.ErrSlotTaken and base.ErrTokenConsumed.

type ProfessionalStore interface {
	GetByID(ctx context.Context, id int64) (*model.Professional, error)
}

type StudentStore interface {
	GetByID(ctx context.Context, id int64) (*model.Student, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// AvailabilityStore reads the recurring weekly windows. Windows returned for
// one weekday never overlap; that is enforced at write time, not re-checked
// on read.
type AvailabilityStore interface {
	WindowsFor(ctx context.Context, professionalID int64, weekday int) ([]model.AvailabilityWindow, error)
	AllWindows(ctx context.Context, professionalID int64) ([]model.AvailabilityWindow, error)
}

// AvailabilityWriter extends AvailabilityStore with the management writes
type AvailabilityWriter interface {
	AvailabilityStore
	Insert(ctx context.Context, w model.AvailabilityWindow) error
	ReplaceWeek(ctx context.Context, professionalID int64, windows []model.AvailabilityWindow) error
	Delete(ctx context.Context, professionalID int64, weekday int, startUTC timeutil.Clock) error
}

// AppointmentStore owns appointment rows. CreateScheduled and Reschedule are
// transactional with their audit record (and, for create, the token rows)
// and return base.ErrSlotTaken when the active-slot unique index rejects the
// write.
type AppointmentStore interface {
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	BusyBetween(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Appointment, error)
	BusyOverlapping(ctx context.Context, professionalID int64, from, to time.Time, excludeID int64) ([]*model.Appointment, error)
	CreateScheduled(ctx context.Context, ap *model.Appointment, rec *model.AuditLog, tokens []*model.AppointmentToken) error
	Reschedule(ctx context.Context, id int64, startsAt, endsAt time.Time, rec *model.AuditLog) error
	Cancel(ctx context.Context, id int64, reason *string, rec *model.AuditLog) error
	DueForReminder(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
	MarkReminderSent(ctx context.Context, id int64, at time.Time) error
}

// TokenStore owns appointment tokens. Consume atomically checks-and-sets
// consumed_at and applies the appointment transition in one transaction,
// returning base.ErrTokenConsumed when the token was already used.
type TokenStore interface {
	Get(ctx context.Context, token uuid.UUID) (*model.AppointmentToken, error)
	Insert(ctx context.Context, t *model.AppointmentToken) error
	FindReusable(ctx context.Context, appointmentID int64, kind model.TokenKind, email string, now time.Time) (*model.AppointmentToken, error)
	Consume(ctx context.Context, token uuid.UUID, newStatus model.AppointmentStatus, now time.Time) error
}

// AuditStore records standalone audit rows (writes that are not already
// bundled into a booking transaction).
type AuditStore interface {
	Record(ctx context.Context, rec *model.AuditLog) error
}

// Notifier delivers outbound mail. Calls are fire-and-forget from the
// booking's perspective; delivery failure never fails the operation.
type Notifier interface {
	AppointmentCreated(ctx context.Context, ap *model.Appointment, guardian *model.User, confirmToken, cancelToken uuid.UUID)
	AppointmentReminder(ctx context.Context, ap *model.Appointment, guardian *model.User, confirmToken, cancelToken uuid.UUID)
}
