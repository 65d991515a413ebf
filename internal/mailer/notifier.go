package mailer

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
	"github.com/escolaviva/agenda/internal/weekimage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// windowSource and bookingSource are the slices of the repositories the
// notifier needs to draw the professional's week into the email.
type windowSource interface {
	AllWindows(ctx context.Context, professionalID int64) ([]model.AvailabilityWindow, error)
}

type bookingSource interface {
	BusyBetween(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Appointment, error)
}

// Notifier renders and sends the appointment emails. Errors are logged, not
// returned: the booking already happened, delivery is best effort.
type Notifier struct {
	sender       Sender
	windows      windowSource
	appointments bookingSource
	baseURL      string
	tz           *time.Location
	logger       *zap.Logger
}

func NewNotifier(
	sender Sender,
	windows windowSource,
	appointments bookingSource,
	baseURL string,
	tz *time.Location,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{
		sender:       sender,
		windows:      windows,
		appointments: appointments,
		baseURL:      baseURL,
		tz:           tz,
		logger:       logger,
	}
}

func (n *Notifier) AppointmentCreated(ctx context.Context, ap *model.Appointment, guardian *model.User, confirmToken, cancelToken uuid.UUID) {
	n.send(ctx, ap, guardian, confirmToken, cancelToken,
		"Appointment scheduled",
		"a new appointment was scheduled. Please confirm it using the button below.",
	)
}

func (n *Notifier) AppointmentReminder(ctx context.Context, ap *model.Appointment, guardian *model.User, confirmToken, cancelToken uuid.UUID) {
	n.send(ctx, ap, guardian, confirmToken, cancelToken,
		"Appointment tomorrow",
		"this is a reminder of the upcoming appointment. Please confirm or cancel below.",
	)
}

func (n *Notifier) send(ctx context.Context, ap *model.Appointment, guardian *model.User, confirmToken, cancelToken uuid.UUID, title, intro string) {
	img := n.weekImage(ctx, ap)

	data := emailData{
		Title:        title,
		Intro:        intro,
		GuardianName: guardian.Name,
		Service:      ap.Service,
		When:         ap.StartsAt.In(n.tz).Format("Monday, 02 Jan 2006 at 15:04"),
		ConfirmURL:   template.URL(fmt.Sprintf("%s/public/appointments/confirm/%s", n.baseURL, confirmToken)),
		CancelURL:    template.URL(fmt.Sprintf("%s/public/appointments/cancel/%s", n.baseURL, cancelToken)),
		HasImage:     len(img) > 0,
	}
	if ap.Student != nil {
		data.StudentName = ap.Student.Name
	}
	if ap.Professional != nil {
		data.ProfessionalName = ap.Professional.Name
	}
	if ap.Location != nil {
		data.Location = *ap.Location
	}

	html, err := renderEmail(data)
	if err != nil {
		n.logger.Error("render appointment email", zap.Int64("appointment_id", ap.ID), zap.Error(err))
		return
	}

	msg := Message{
		To:      guardian.Email,
		Subject: title,
		HTML:    html,
		Inline:  img,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("send appointment email",
			zap.Int64("appointment_id", ap.ID),
			zap.String("to", guardian.Email),
			zap.Error(err),
		)
		return
	}
	n.logger.Info("appointment email sent",
		zap.Int64("appointment_id", ap.ID),
		zap.String("to", guardian.Email),
		zap.String("subject", title),
	)
}

// weekImage draws the professional's week around the appointment. A failure
// here only drops the image, never the email.
func (n *Notifier) weekImage(ctx context.Context, ap *model.Appointment) []byte {
	if n.windows == nil || n.appointments == nil {
		return nil
	}

	local := ap.StartsAt.In(n.tz)
	weekStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, n.tz).
		AddDate(0, 0, -timeutil.WeekdayOf(local))
	weekEnd := weekStart.AddDate(0, 0, 7)

	windows, err := n.windows.AllWindows(ctx, ap.ProfessionalID)
	if err != nil {
		n.logger.Warn("load windows for week image", zap.Int64("professional_id", ap.ProfessionalID), zap.Error(err))
		return nil
	}
	booked, err := n.appointments.BusyBetween(ctx, ap.ProfessionalID, weekStart.UTC(), weekEnd.UTC())
	if err != nil {
		n.logger.Warn("load bookings for week image", zap.Int64("professional_id", ap.ProfessionalID), zap.Error(err))
		return nil
	}

	img, err := weekimage.Render(weekStart, windows, booked)
	if err != nil {
		n.logger.Warn("render week image", zap.Int64("professional_id", ap.ProfessionalID), zap.Error(err))
		return nil
	}
	return img
}
