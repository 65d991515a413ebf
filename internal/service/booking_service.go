package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/repository/base"
	"github.com/escolaviva/agenda/internal/schedule"
	"github.com/escolaviva/agenda/internal/timeutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// rescheduleLead is the minimum notice for moving an appointment
const rescheduleLead = 6 * time.Hour

// defaultTokenTTL is how long confirm/cancel links stay valid
const defaultTokenTTL = 48 * time.Hour

// BookingService orchestrates appointment creation, rescheduling and
// cancellation. It is the only component that writes appointment rows, and
// it resolves the validate-then-write race window by translating the
// active-slot unique violation into the same conflict outcome as a failed
// pre-flight validation.
type BookingService struct {
	professionals ProfessionalStore
	students      StudentStore
	users         UserStore
	appointments  AppointmentStore
	validator     *SlotValidator
	notifier      Notifier
	tokenTTL      time.Duration
	logger        *zap.Logger
	now           func() time.Time
	sends         sync.WaitGroup
}

func NewBookingService(
	professionals ProfessionalStore,
	students StudentStore,
	users UserStore,
	appointments AppointmentStore,
	validator *SlotValidator,
	notifier Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		professionals: professionals,
		students:      students,
		users:         users,
		appointments:  appointments,
		validator:     validator,
		notifier:      notifier,
		tokenTTL:      defaultTokenTTL,
		logger:        logger,
		now:           time.Now,
	}
}

// SetTokenTTL overrides how long the emailed confirm/cancel links stay valid
func (s *BookingService) SetTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
}

// CreateAppointmentInput carries everything needed for one booking
type CreateAppointmentInput struct {
	StudentID      int64
	ProfessionalID int64
	Service        string
	Location       *string
	StartsAt       time.Time // UTC instant
	SlotMinutes    int
}

// Create books a new appointment in SCHEDULED. The appointment row, its
// audit record and the CONFIRM/CANCEL tokens are one transaction; the
// notification email is sent asynchronously afterwards.
func (s *BookingService) Create(ctx context.Context, in CreateAppointmentInput, actor *model.User) (*model.Appointment, error) {
	prof, err := s.professionals.GetByID(ctx, in.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("get professional: %w", err)
	}
	if prof == nil {
		return nil, fmt.Errorf("professional %d: %w", in.ProfessionalID, ErrNotFound)
	}
	if !prof.IsActive {
		return nil, conflict(ReasonProfessionalInactive)
	}

	student, err := s.students.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %d: %w", in.StudentID, ErrNotFound)
	}

	if err := canBookFor(actor, student); err != nil {
		return nil, err
	}

	guardian, err := s.users.GetByID(ctx, student.GuardianUserID)
	if err != nil {
		return nil, fmt.Errorf("get guardian: %w", err)
	}
	if guardian == nil {
		return nil, fmt.Errorf("guardian user %d: %w", student.GuardianUserID, ErrNotFound)
	}

	startUTC := in.StartsAt.UTC()
	ok, reason, err := s.validator.Validate(ctx, in.ProfessionalID, startUTC, in.SlotMinutes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conflict(reason)
	}

	ap := &model.Appointment{
		StudentID:      in.StudentID,
		ProfessionalID: in.ProfessionalID,
		Service:        in.Service,
		Location:       in.Location,
		Status:         model.AppointmentScheduled,
		StartsAt:       startUTC,
		EndsAt:         startUTC.Add(time.Duration(in.SlotMinutes) * time.Minute),
	}

	expires := s.now().Add(s.tokenTTL)
	confirmTok := newToken(model.TokenKindConfirm, guardian.Email, expires)
	cancelTok := newToken(model.TokenKindCancel, guardian.Email, expires)

	rec := &model.AuditLog{
		UserID: actorID(actor),
		Action: model.AuditActionCreate,
		Entity: "appointment",
	}

	err = s.appointments.CreateScheduled(ctx, ap, rec, []*model.AppointmentToken{confirmTok, cancelTok})
	if err != nil {
		if errors.Is(err, base.ErrSlotTaken) {
			// another request won the race between validation and write
			return nil, conflict(ReasonSlotRaced)
		}
		return nil, err
	}

	s.logger.Info("Appointment created",
		zap.Int64("appointment_id", ap.ID),
		zap.Int64("professional_id", ap.ProfessionalID),
		zap.Int64("student_id", ap.StudentID),
		zap.Time("starts_at", ap.StartsAt),
	)

	ap.Student = student
	ap.Professional = prof

	if s.notifier != nil {
		s.sends.Add(1)
		go func() {
			defer s.sends.Done()
			s.notifier.AppointmentCreated(context.WithoutCancel(ctx), ap, guardian, confirmTok.Token, cancelTok.Token)
		}()
	}

	return ap, nil
}

// WaitNotifications blocks until in-flight notification sends are done.
// Short-lived callers use it so the process does not exit mid-delivery.
func (s *BookingService) WaitNotifications() {
	s.sends.Wait()
}

// Reschedule moves an existing appointment to a new start, preserving its
// duration, identity and status. The new start must be at least six hours
// ahead of now regardless of slot availability.
func (s *BookingService) Reschedule(ctx context.Context, appointmentID int64, newStart time.Time, actor *model.User) (*model.Appointment, error) {
	ap, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if ap == nil {
		return nil, fmt.Errorf("appointment %d: %w", appointmentID, ErrNotFound)
	}

	if err := s.canManage(ctx, actor, ap); err != nil {
		return nil, err
	}

	newStart = newStart.UTC()
	if newStart.Before(s.now().Add(rescheduleLead)) {
		return nil, conflict(ReasonLeadTime)
	}

	minutes := ap.DurationMinutes()
	if minutes <= 0 {
		return nil, fmt.Errorf("appointment %d has invalid duration", appointmentID)
	}
	newEnd := newStart.Add(time.Duration(minutes) * time.Minute)

	windows, err := s.validator.availability.WindowsFor(ctx, ap.ProfessionalID, timeutil.WeekdayUTC(newStart))
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if !schedule.FitsWindows(newStart, minutes, windows) {
		return nil, conflict(ReasonOutsideHours)
	}

	// conflict check against all other active appointments, self excluded
	busy, err := s.appointments.BusyOverlapping(ctx, ap.ProfessionalID, newStart, newEnd, ap.ID)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	if len(busy) > 0 {
		return nil, conflict(ReasonSlotTaken)
	}

	rec := &model.AuditLog{
		UserID: actorID(actor),
		Action: model.AuditActionReschedule,
		Entity: "appointment",
	}

	err = s.appointments.Reschedule(ctx, ap.ID, newStart, newEnd, rec)
	if err != nil {
		if errors.Is(err, base.ErrSlotTaken) {
			return nil, conflict(ReasonSlotRaced)
		}
		return nil, err
	}

	s.logger.Info("Appointment rescheduled",
		zap.Int64("appointment_id", ap.ID),
		zap.Time("starts_at", newStart),
	)

	ap.StartsAt = newStart
	ap.EndsAt = newEnd

	return ap, nil
}

// Cancel is the authenticated cancel action (as opposed to the CANCEL token)
func (s *BookingService) Cancel(ctx context.Context, appointmentID int64, reason string, actor *model.User) error {
	ap, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("get appointment: %w", err)
	}
	if ap == nil {
		return fmt.Errorf("appointment %d: %w", appointmentID, ErrNotFound)
	}

	if err := s.canManage(ctx, actor, ap); err != nil {
		return err
	}

	if !ap.IsActive() {
		return conflict(ReasonNotActive)
	}

	rec := &model.AuditLog{
		UserID: actorID(actor),
		Action: model.AuditActionCancel,
		Entity: "appointment",
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	if err := s.appointments.Cancel(ctx, ap.ID, reasonPtr, rec); err != nil {
		return err
	}

	s.logger.Info("Appointment cancelled",
		zap.Int64("appointment_id", ap.ID),
		zap.String("reason", reason),
	)

	return nil
}

// canBookFor gates creation. A nil actor means the calling layer already
// authorized the operation.
func canBookFor(actor *model.User, student *model.Student) error {
	if actor == nil {
		return nil
	}
	switch actor.Role {
	case model.RoleCoordination:
		return nil
	case model.RoleFamily:
		if student.GuardianUserID != actor.ID {
			return fmt.Errorf("user %d is not the guardian of student %d: %w", actor.ID, student.ID, ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("role %s may not book: %w", actor.Role, ErrForbidden)
	}
}

// canManage gates reschedule/cancel: coordination may manage everything, a
// guardian only the appointments of their own students.
func (s *BookingService) canManage(ctx context.Context, actor *model.User, ap *model.Appointment) error {
	if actor == nil {
		return nil
	}
	switch actor.Role {
	case model.RoleCoordination:
		return nil
	case model.RoleFamily:
		student, err := s.students.GetByID(ctx, ap.StudentID)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		if student == nil || student.GuardianUserID != actor.ID {
			return fmt.Errorf("user %d may not manage appointment %d: %w", actor.ID, ap.ID, ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("role %s may not manage appointments: %w", actor.Role, ErrForbidden)
	}
}

func actorID(actor *model.User) *int64 {
	if actor == nil {
		return nil
	}
	return &actor.ID
}

// newToken builds an unsaved token row
func newToken(kind model.TokenKind, email string, expires time.Time) *model.AppointmentToken {
	return &model.AppointmentToken{
		Token:     uuid.New(),
		Kind:      kind,
		Email:     email,
		ExpiresAt: expires,
	}
}
