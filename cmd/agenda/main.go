package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/escolaviva/agenda/internal/app"
	"github.com/escolaviva/agenda/internal/config"
	"github.com/escolaviva/agenda/internal/mailer"
	"github.com/escolaviva/agenda/internal/repository"
	"github.com/escolaviva/agenda/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting agenda",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.DefaultTZ),
	)

	tz, err := time.LoadLocation(cfg.DefaultTZ)
	if err != nil {
		logger.Fatal("Invalid DEFAULT_TZ", zap.String("tz", cfg.DefaultTZ), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// repositories used by the reminder daemon
	users := repository.NewUserRepository(pool)
	students := repository.NewStudentRepository(pool)
	availability := repository.NewAvailabilityRepository(pool)
	appointments := repository.NewAppointmentRepository(pool)
	tokens := repository.NewTokenRepository(pool)

	// mail delivery; development falls back to log-only
	var sender mailer.Sender
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		logger.Warn("SMTP_HOST not set, emails are logged instead of sent")
		sender = &mailer.LogSender{Log: func(to, subject string) {
			logger.Info("email suppressed", zap.String("to", to), zap.String("subject", subject))
		}}
	}
	notifier := mailer.NewNotifier(sender, availability, appointments, cfg.PublicBaseURL, tz, logger)

	tokenFlow := service.NewTokenService(tokens, appointments, cfg.TokenTTL, logger)
	reminders := service.NewReminderService(appointments, students, users, tokenFlow, notifier, tz, logger)

	scheduler := app.NewScheduler(reminders, cfg.ReminderEvery, logger)
	scheduler.Start(ctx)

	logger.Info("Agenda is running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down")
	scheduler.Stop()
	cancel()
}
