package model

import "time"

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentDone      AppointmentStatus = "DONE"
)

// ActiveStatuses are the statuses that occupy a slot. The partial unique
// index on (professional_id, starts_at) is filtered to exactly this set.
var ActiveStatuses = []AppointmentStatus{AppointmentScheduled, AppointmentConfirmed}

type Appointment struct {
	ID                 int64             `json:"id"`
	StudentID          int64             `json:"student_id"`
	ProfessionalID     int64             `json:"professional_id"`
	Service            string            `json:"service"`
	Location           *string           `json:"location"`
	Status             AppointmentStatus `json:"status"`
	StartsAt           time.Time         `json:"starts_at"` // UTC instant
	EndsAt             time.Time         `json:"ends_at"`   // UTC instant
	ConfirmedAt        *time.Time        `json:"confirmed_at"`
	CancellationReason *string           `json:"cancellation_reason"`
	ReminderSentAt     *time.Time        `json:"reminder_sent_at"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`

	// Convenience fields filled by services for notifications (not from DB)
	Student      *Student      `json:"student,omitempty"`
	Professional *Professional `json:"professional,omitempty"`
}

// IsActive checks if the appointment occupies its slot
func (a *Appointment) IsActive() bool {
	return a.Status == AppointmentScheduled || a.Status == AppointmentConfirmed
}

// DurationMinutes returns the slot length in whole minutes
func (a *Appointment) DurationMinutes() int {
	return int(a.EndsAt.Sub(a.StartsAt) / time.Minute)
}
