package app

import (
	"context"
	"time"

	"github.com/escolaviva/agenda/internal/service"
	"go.uber.org/zap"
)

// Scheduler runs the background jobs
type Scheduler struct {
	reminders *service.ReminderService
	interval  time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
}

// NewScheduler creates the background scheduler
func NewScheduler(reminders *service.ReminderService, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the background jobs
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runReminderTask(ctx)
}

// Stop stops the background jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runReminderTask periodically sends the day-before reminders
func (s *Scheduler) runReminderTask(ctx context.Context) {
	// first run right at startup
	s.sendReminders(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sendReminders(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder task cancelled")
			return
		}
	}
}

func (s *Scheduler) sendReminders(ctx context.Context) {
	if _, err := s.reminders.SendDueReminders(ctx); err != nil {
		s.logger.Error("Failed to send reminders", zap.Error(err))
	}
}
