package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
	"go.uber.org/zap"
)

// AvailabilityService is the professional-management workflow around the
// weekly windows. Input times are local wall clock; storage is UTC keyed by
// UTC weekday, so the conversion can move a window to the neighbouring
// weekday.
type AvailabilityService struct {
	professionals ProfessionalStore
	store         AvailabilityWriter
	audit         AuditStore
	logger        *zap.Logger
}

func NewAvailabilityService(professionals ProfessionalStore, store AvailabilityWriter, audit AuditStore, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{professionals: professionals, store: store, audit: audit, logger: logger}
}

// WindowInput is one local-time window of a weekly pattern
type WindowInput struct {
	Weekday int    // 0 = Monday .. 6 = Sunday, local
	Start   string // "HH:MM" local
	End     string // "HH:MM" local
}

func (s *AvailabilityService) ensureProfessional(ctx context.Context, id int64) error {
	prof, err := s.professionals.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get professional: %w", err)
	}
	if prof == nil {
		return fmt.Errorf("professional %d: %w", id, ErrNotFound)
	}
	if !prof.IsActive {
		return conflict(ReasonProfessionalInactive)
	}
	return nil
}

// convertWindow maps one local window to its UTC weekday and clocks
func convertWindow(professionalID int64, in WindowInput, loc *time.Location) (model.AvailabilityWindow, error) {
	if in.Weekday < 0 || in.Weekday > 6 {
		return model.AvailabilityWindow{}, fmt.Errorf("invalid weekday %d", in.Weekday)
	}

	startLocal, err := timeutil.ParseClock(in.Start)
	if err != nil {
		return model.AvailabilityWindow{}, err
	}
	endLocal, err := timeutil.ParseClock(in.End)
	if err != nil {
		return model.AvailabilityWindow{}, err
	}

	wdStart, startUTC := timeutil.LocalClockToUTC(in.Weekday, startLocal, loc)
	wdEnd, endUTC := timeutil.LocalClockToUTC(in.Weekday, endLocal, loc)
	if wdStart != wdEnd || !startUTC.Before(endUTC) {
		return model.AvailabilityWindow{}, fmt.Errorf("window %s-%s crosses midnight after UTC conversion", in.Start, in.End)
	}

	return model.AvailabilityWindow{
		ProfessionalID: professionalID,
		Weekday:        wdStart,
		StartUTC:       startUTC,
		EndUTC:         endUTC,
	}, nil
}

func overlapsExisting(existing []model.AvailabilityWindow, start, end timeutil.Clock) bool {
	for _, w := range existing {
		if start.Minutes() < w.EndUTC.Minutes() && w.StartUTC.Minutes() < end.Minutes() {
			return true
		}
	}
	return false
}

// AddWindow inserts one window, rejecting overlap with the same UTC weekday
func (s *AvailabilityService) AddWindow(ctx context.Context, professionalID int64, in WindowInput, loc *time.Location, actor *model.User) (model.AvailabilityWindow, error) {
	if err := s.ensureProfessional(ctx, professionalID); err != nil {
		return model.AvailabilityWindow{}, err
	}

	w, err := convertWindow(professionalID, in, loc)
	if err != nil {
		return model.AvailabilityWindow{}, err
	}

	existing, err := s.store.WindowsFor(ctx, professionalID, w.Weekday)
	if err != nil {
		return model.AvailabilityWindow{}, fmt.Errorf("load availability: %w", err)
	}
	if overlapsExisting(existing, w.StartUTC, w.EndUTC) {
		return model.AvailabilityWindow{}, conflict("window overlaps an existing one")
	}

	if err := s.store.Insert(ctx, w); err != nil {
		return model.AvailabilityWindow{}, err
	}

	s.record(ctx, actor, model.AuditActionCreate, professionalID)
	return w, nil
}

// SetWeek replaces the professional's whole weekly pattern
func (s *AvailabilityService) SetWeek(ctx context.Context, professionalID int64, inputs []WindowInput, loc *time.Location, actor *model.User) ([]model.AvailabilityWindow, error) {
	if err := s.ensureProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	windows := make([]model.AvailabilityWindow, 0, len(inputs))
	for _, in := range inputs {
		w, err := convertWindow(professionalID, in, loc)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Weekday != windows[j].Weekday {
			return windows[i].Weekday < windows[j].Weekday
		}
		return windows[i].StartUTC.Before(windows[j].StartUTC)
	})
	for i := 1; i < len(windows); i++ {
		prev, cur := windows[i-1], windows[i]
		if prev.Weekday == cur.Weekday && cur.StartUTC.Minutes() < prev.EndUTC.Minutes() {
			return nil, conflict(fmt.Sprintf("overlapping windows on weekday %d", cur.Weekday))
		}
	}

	if err := s.store.ReplaceWeek(ctx, professionalID, windows); err != nil {
		return nil, err
	}

	s.logger.Info("Weekly availability replaced",
		zap.Int64("professional_id", professionalID),
		zap.Int("windows", len(windows)),
	)

	s.record(ctx, actor, model.AuditActionReplace, professionalID)
	return windows, nil
}

// RemoveWindow deletes one window addressed by its local start
func (s *AvailabilityService) RemoveWindow(ctx context.Context, professionalID int64, weekday int, startLocal string, loc *time.Location, actor *model.User) error {
	if err := s.ensureProfessional(ctx, professionalID); err != nil {
		return err
	}

	start, err := timeutil.ParseClock(startLocal)
	if err != nil {
		return err
	}
	wd, startUTC := timeutil.LocalClockToUTC(weekday, start, loc)

	if err := s.store.Delete(ctx, professionalID, wd, startUTC); err != nil {
		return err
	}

	s.record(ctx, actor, model.AuditActionCancel, professionalID)
	return nil
}

// WindowView pairs the stored UTC window with its local projection
type WindowView struct {
	model.AvailabilityWindow
	LocalWeekday int            `json:"local_weekday"`
	StartLocal   timeutil.Clock `json:"start_local"`
	EndLocal     timeutil.Clock `json:"end_local"`
}

// ListWeek returns all windows with their local-time projections
func (s *AvailabilityService) ListWeek(ctx context.Context, professionalID int64, loc *time.Location) ([]WindowView, error) {
	windows, err := s.store.AllWindows(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	out := make([]WindowView, 0, len(windows))
	for _, w := range windows {
		wd, start := timeutil.UTCClockToLocal(w.Weekday, w.StartUTC, loc)
		_, end := timeutil.UTCClockToLocal(w.Weekday, w.EndUTC, loc)
		out = append(out, WindowView{
			AvailabilityWindow: w,
			LocalWeekday:       wd,
			StartLocal:         start,
			EndLocal:           end,
		})
	}

	return out, nil
}

func (s *AvailabilityService) record(ctx context.Context, actor *model.User, action string, professionalID int64) {
	rec := &model.AuditLog{
		UserID:   actorID(actor),
		Action:   action,
		Entity:   "availability",
		EntityID: &professionalID,
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		s.logger.Warn("Failed to record audit entry", zap.Error(err))
	}
}
