package service

import (
	"context"
	"fmt"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
	"go.uber.org/zap"
)

// ReminderService sends the day-before reminder for active appointments.
// "Tomorrow" is the next civil day in the configured local zone, converted
// to a UTC range the same way slot computation converts a requested day.
type ReminderService struct {
	appointments AppointmentStore
	students     StudentStore
	users        UserStore
	tokens       *TokenService
	notifier     Notifier
	tz           *time.Location
	logger       *zap.Logger
	now          func() time.Time
}

func NewReminderService(
	appointments AppointmentStore,
	students StudentStore,
	users UserStore,
	tokens *TokenService,
	notifier Notifier,
	tz *time.Location,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		appointments: appointments,
		students:     students,
		users:        users,
		tokens:       tokens,
		notifier:     notifier,
		tz:           tz,
		logger:       logger,
		now:          time.Now,
	}
}

// SendDueReminders processes every active appointment of tomorrow that has
// no reminder yet. Returns how many reminders went out.
func (s *ReminderService) SendDueReminders(ctx context.Context) (int, error) {
	tomorrow := s.now().In(s.tz).AddDate(0, 0, 1)
	y, m, d := tomorrow.Date()
	from, to := timeutil.DayRangeUTC(y, m, d, s.tz)

	due, err := s.appointments.DueForReminder(ctx, from, to)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, ap := range due {
		if err := s.remind(ctx, ap); err != nil {
			s.logger.Error("Failed to send reminder",
				zap.Int64("appointment_id", ap.ID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("Reminders sent", zap.Int("count", sent))
	}

	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, ap *model.Appointment) error {
	student, err := s.students.GetByID(ctx, ap.StudentID)
	if err != nil {
		return fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return fmt.Errorf("student %d: %w", ap.StudentID, ErrNotFound)
	}

	guardian, err := s.users.GetByID(ctx, student.GuardianUserID)
	if err != nil {
		return fmt.Errorf("get guardian: %w", err)
	}
	if guardian == nil {
		return fmt.Errorf("guardian user %d: %w", student.GuardianUserID, ErrNotFound)
	}

	confirm, err := s.tokens.GetOrCreate(ctx, ap.ID, model.TokenKindConfirm, guardian.Email)
	if err != nil {
		return err
	}
	cancel, err := s.tokens.GetOrCreate(ctx, ap.ID, model.TokenKindCancel, guardian.Email)
	if err != nil {
		return err
	}

	ap.Student = student
	if s.notifier != nil {
		s.notifier.AppointmentReminder(ctx, ap, guardian, confirm.Token, cancel.Token)
	}

	return s.appointments.MarkReminderSent(ctx, ap.ID, s.now())
}
