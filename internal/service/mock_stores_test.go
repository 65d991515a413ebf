package service

// In-memory store implementations for the service tests. The appointment
// store arbitrates the active-slot uniqueness under its mutex, the same
// contract the partial unique index provides in Postgres, so the race
// handling can be exercised without a database.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/repository/base"
	"github.com/escolaviva/agenda/internal/timeutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memProfessionalStore struct {
	m map[int64]*model.Professional
}

func (s *memProfessionalStore) GetByID(_ context.Context, id int64) (*model.Professional, error) {
	return s.m[id], nil
}

type memStudentStore struct {
	m map[int64]*model.Student
}

func (s *memStudentStore) GetByID(_ context.Context, id int64) (*model.Student, error) {
	return s.m[id], nil
}

type memUserStore struct {
	m map[int64]*model.User
}

func (s *memUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	return s.m[id], nil
}

type memAvailabilityStore struct {
	mu      sync.Mutex
	windows []model.AvailabilityWindow
}

func (s *memAvailabilityStore) WindowsFor(_ context.Context, professionalID int64, weekday int) ([]model.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AvailabilityWindow
	for _, w := range s.windows {
		if w.ProfessionalID == professionalID && w.Weekday == weekday {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *memAvailabilityStore) AllWindows(_ context.Context, professionalID int64) ([]model.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AvailabilityWindow
	for _, w := range s.windows {
		if w.ProfessionalID == professionalID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *memAvailabilityStore) Insert(_ context.Context, w model.AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, w)
	return nil
}

func (s *memAvailabilityStore) ReplaceWeek(_ context.Context, professionalID int64, windows []model.AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.windows[:0]
	for _, w := range s.windows {
		if w.ProfessionalID != professionalID {
			kept = append(kept, w)
		}
	}
	s.windows = append(kept, windows...)
	return nil
}

func (s *memAvailabilityStore) Delete(_ context.Context, professionalID int64, weekday int, startUTC timeutil.Clock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.windows[:0]
	for _, w := range s.windows {
		if w.ProfessionalID == professionalID && w.Weekday == weekday && w.StartUTC == startUTC {
			continue
		}
		kept = append(kept, w)
	}
	s.windows = kept
	return nil
}

type memAppointmentStore struct {
	mu     sync.Mutex
	seq    int64
	appts  map[int64]*model.Appointment
	audits []*model.AuditLog
	tokens *memTokenStore
}

func newMemAppointmentStore() *memAppointmentStore {
	s := &memAppointmentStore{appts: make(map[int64]*model.Appointment)}
	s.tokens = &memTokenStore{m: make(map[uuid.UUID]*model.AppointmentToken), appts: s}
	return s
}

func (s *memAppointmentStore) GetByID(_ context.Context, id int64) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ap, ok := s.appts[id]
	if !ok {
		return nil, nil
	}
	cp := *ap
	return &cp, nil
}

func (s *memAppointmentStore) BusyBetween(_ context.Context, professionalID int64, from, to time.Time) ([]*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busyLocked(professionalID, from, to, 0), nil
}

func (s *memAppointmentStore) BusyOverlapping(_ context.Context, professionalID int64, from, to time.Time, excludeID int64) ([]*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busyLocked(professionalID, from, to, excludeID), nil
}

func (s *memAppointmentStore) busyLocked(professionalID int64, from, to time.Time, excludeID int64) []*model.Appointment {
	var out []*model.Appointment
	for _, ap := range s.appts {
		if ap.ProfessionalID != professionalID || ap.ID == excludeID {
			continue
		}
		if ap.Status == model.AppointmentCancelled {
			continue
		}
		if ap.StartsAt.Before(to) && from.Before(ap.EndsAt) {
			cp := *ap
			out = append(out, &cp)
		}
	}
	return out
}

func (s *memAppointmentStore) CreateScheduled(_ context.Context, ap *model.Appointment, rec *model.AuditLog, tokens []*model.AppointmentToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.appts {
		if other.ProfessionalID == ap.ProfessionalID && other.IsActive() && other.StartsAt.Equal(ap.StartsAt) {
			return base.ErrSlotTaken
		}
	}
	s.seq++
	ap.ID = s.seq
	ap.CreatedAt = time.Now()
	ap.UpdatedAt = ap.CreatedAt
	cp := *ap
	s.appts[ap.ID] = &cp
	s.audits = append(s.audits, rec)
	for _, t := range tokens {
		t.AppointmentID = ap.ID
		tc := *t
		s.tokens.m[t.Token] = &tc
	}
	return nil
}

func (s *memAppointmentStore) Reschedule(_ context.Context, id int64, startsAt, endsAt time.Time, rec *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ap, ok := s.appts[id]
	if !ok {
		return fmt.Errorf("appointment %d not found", id)
	}
	for _, other := range s.appts {
		if other.ID != id && other.ProfessionalID == ap.ProfessionalID && other.IsActive() && other.StartsAt.Equal(startsAt) {
			return base.ErrSlotTaken
		}
	}
	ap.StartsAt = startsAt
	ap.EndsAt = endsAt
	ap.UpdatedAt = time.Now()
	s.audits = append(s.audits, rec)
	return nil
}

func (s *memAppointmentStore) Cancel(_ context.Context, id int64, reason *string, rec *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ap, ok := s.appts[id]; ok {
		ap.Status = model.AppointmentCancelled
		ap.CancellationReason = reason
		ap.UpdatedAt = time.Now()
	}
	s.audits = append(s.audits, rec)
	return nil
}

func (s *memAppointmentStore) DueForReminder(_ context.Context, from, to time.Time) ([]*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Appointment
	for _, ap := range s.appts {
		if !ap.IsActive() || ap.ReminderSentAt != nil {
			continue
		}
		if !ap.StartsAt.Before(from) && ap.StartsAt.Before(to) {
			cp := *ap
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memAppointmentStore) MarkReminderSent(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ap, ok := s.appts[id]; ok {
		ap.ReminderSentAt = &at
	}
	return nil
}

func (s *memAppointmentStore) setStatusLocked(id int64, status model.AppointmentStatus, at time.Time) {
	if ap, ok := s.appts[id]; ok {
		ap.Status = status
		ap.UpdatedAt = at
		if status == model.AppointmentConfirmed {
			ap.ConfirmedAt = &at
		}
	}
}

type memTokenStore struct {
	mu    sync.Mutex
	m     map[uuid.UUID]*model.AppointmentToken
	appts *memAppointmentStore
}

func (s *memTokenStore) Get(_ context.Context, token uuid.UUID) (*model.AppointmentToken, error) {
	s.appts.mu.Lock()
	defer s.appts.mu.Unlock()
	t, ok := s.m[token]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *memTokenStore) Insert(_ context.Context, t *model.AppointmentToken) error {
	s.appts.mu.Lock()
	defer s.appts.mu.Unlock()
	t.CreatedAt = time.Now()
	cp := *t
	s.m[t.Token] = &cp
	return nil
}

func (s *memTokenStore) FindReusable(_ context.Context, appointmentID int64, kind model.TokenKind, email string, now time.Time) (*model.AppointmentToken, error) {
	s.appts.mu.Lock()
	defer s.appts.mu.Unlock()
	var best *model.AppointmentToken
	for _, t := range s.m {
		if t.AppointmentID != appointmentID || t.Kind != kind || t.Email != email {
			continue
		}
		if t.ConsumedAt != nil || !now.Before(t.ExpiresAt) {
			continue
		}
		if best == nil || t.CreatedAt.After(best.CreatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

// Consume is the check-and-set plus the status transition in one critical
// section, mirroring the single database transaction of the real repository.
func (s *memTokenStore) Consume(_ context.Context, token uuid.UUID, newStatus model.AppointmentStatus, now time.Time) error {
	s.appts.mu.Lock()
	defer s.appts.mu.Unlock()
	t, ok := s.m[token]
	if !ok || t.ConsumedAt != nil {
		return base.ErrTokenConsumed
	}
	t.ConsumedAt = &now
	s.appts.setStatusLocked(t.AppointmentID, newStatus, now)
	return nil
}

type memAuditStore struct {
	mu   sync.Mutex
	recs []*model.AuditLog
}

func (s *memAuditStore) Record(_ context.Context, rec *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

type notifierCall struct {
	event         string
	appointmentID int64
	email         string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *recordingNotifier) AppointmentCreated(_ context.Context, ap *model.Appointment, guardian *model.User, _, _ uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{event: "created", appointmentID: ap.ID, email: guardian.Email})
}

func (n *recordingNotifier) AppointmentReminder(_ context.Context, ap *model.Appointment, guardian *model.User, _, _ uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{event: "reminder", appointmentID: ap.ID, email: guardian.Email})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// fixture wires a full service stack over the in-memory stores with one
// active professional, one student and their guardian.
type fixture struct {
	professionals *memProfessionalStore
	students      *memStudentStore
	users         *memUserStore
	availability  *memAvailabilityStore
	appointments  *memAppointmentStore
	audit         *memAuditStore
	notifier      *recordingNotifier

	validator *SlotValidator
	booking   *BookingService
	tokens    *TokenService
	slots     *SlotService
	schedule  *AvailabilityService
}

func newFixture() *fixture {
	f := &fixture{
		professionals: &memProfessionalStore{m: map[int64]*model.Professional{
			1: {ID: 1, Name: "Dr. Alba", Speciality: "speech therapy", IsActive: true},
			2: {ID: 2, Name: "Dr. Brito", Speciality: "psychology", IsActive: false},
		}},
		students: &memStudentStore{m: map[int64]*model.Student{
			10: {ID: 10, Name: "Ana", GuardianUserID: 100},
		}},
		users: &memUserStore{m: map[int64]*model.User{
			100: {ID: 100, Name: "Carla", Email: "carla@example.com", Role: model.RoleFamily, IsActive: true},
			200: {ID: 200, Name: "Dora", Email: "dora@example.com", Role: model.RoleCoordination, IsActive: true},
			300: {ID: 300, Name: "Eva", Email: "eva@example.com", Role: model.RoleFamily, IsActive: true},
		}},
		availability: &memAvailabilityStore{},
		appointments: newMemAppointmentStore(),
		audit:        &memAuditStore{},
		notifier:     &recordingNotifier{},
	}

	logger := zap.NewNop()
	f.validator = NewSlotValidator(f.availability, f.appointments)
	// the booking notifier runs in a goroutine; keep it nil by default and
	// let tests that assert dispatch set it and use WaitNotifications
	f.booking = NewBookingService(f.professionals, f.students, f.users, f.appointments, f.validator, nil, logger)
	f.tokens = NewTokenService(f.appointments.tokens, f.appointments, 48*time.Hour, logger)
	f.slots = NewSlotService(f.availability, f.appointments, logger)
	f.schedule = NewAvailabilityService(f.professionals, f.availability, f.audit, logger)
	return f
}

// addWindow registers a UTC availability window directly in storage
func (f *fixture) addWindow(professionalID int64, weekday, fromH, toH int) {
	f.availability.windows = append(f.availability.windows, model.AvailabilityWindow{
		ProfessionalID: professionalID,
		Weekday:        weekday,
		StartUTC:       timeutil.Clock{Hour: fromH},
		EndUTC:         timeutil.Clock{Hour: toH},
	})
}
