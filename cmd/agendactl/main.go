// agendactl is the operator CLI for the booking engine: slot listing,
// booking, rescheduling, cancellation, token redemption and availability
// management, all straight against the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/escolaviva/agenda/internal/app"
	"github.com/escolaviva/agenda/internal/config"
	"github.com/escolaviva/agenda/internal/mailer"
	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/repository"
	"github.com/escolaviva/agenda/internal/service"
	"github.com/escolaviva/agenda/internal/timeutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const usage = `usage: agendactl <command> [flags]

commands:
  slots       list free slots of a professional for one local day
  validate    pre-flight check of one slot
  book        create an appointment
  reschedule  move an appointment to a new start
  cancel      cancel an appointment
  redeem      redeem a confirm/cancel token
  windows     manage weekly availability (list | add | set | remove)
`

type cli struct {
	cfg      *config.Config
	tz       *time.Location
	slots    *service.SlotService
	validate *service.SlotValidator
	booking  *service.BookingService
	tokens   *service.TokenService
	schedule *service.AvailabilityService
	users    *repository.UserRepository
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	tz, err := time.LoadLocation(cfg.DefaultTZ)
	if err != nil {
		logger.Fatal("Invalid DEFAULT_TZ", zap.String("tz", cfg.DefaultTZ), zap.Error(err))
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	c := newCLI(cfg, tz, pool, logger)

	cmd, args := os.Args[1], os.Args[2:]
	if err := c.run(ctx, cmd, args); err != nil {
		if service.IsConflict(err) {
			fmt.Fprintf(os.Stderr, "rejected: %s\n", service.ConflictReason(err))
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// booking emails go out in the background; wait before exiting
	c.booking.WaitNotifications()
}

func newCLI(cfg *config.Config, tz *time.Location, pool *pgxpool.Pool, logger *zap.Logger) *cli {
	users := repository.NewUserRepository(pool)
	students := repository.NewStudentRepository(pool)
	professionals := repository.NewProfessionalRepository(pool)
	availability := repository.NewAvailabilityRepository(pool)
	appointments := repository.NewAppointmentRepository(pool)
	tokens := repository.NewTokenRepository(pool)
	audit := repository.NewAuditRepository(pool)

	// same delivery setup as the daemon, so operator bookings email the
	// guardian their confirm/cancel links too
	var sender mailer.Sender
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		sender = &mailer.LogSender{Log: func(to, subject string) {
			logger.Info("email suppressed", zap.String("to", to), zap.String("subject", subject))
		}}
	}
	notifier := mailer.NewNotifier(sender, availability, appointments, cfg.PublicBaseURL, tz, logger)

	validator := service.NewSlotValidator(availability, appointments)
	booking := service.NewBookingService(professionals, students, users, appointments, validator, notifier, logger)
	booking.SetTokenTTL(cfg.TokenTTL)

	return &cli{
		cfg:      cfg,
		tz:       tz,
		slots:    service.NewSlotService(availability, appointments, logger),
		validate: validator,
		booking:  booking,
		tokens:   service.NewTokenService(tokens, appointments, cfg.TokenTTL, logger),
		schedule: service.NewAvailabilityService(professionals, availability, audit, logger),
		users:    users,
	}
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "slots":
		return c.runSlots(ctx, args)
	case "validate":
		return c.runValidate(ctx, args)
	case "book":
		return c.runBook(ctx, args)
	case "reschedule":
		return c.runReschedule(ctx, args)
	case "cancel":
		return c.runCancel(ctx, args)
	case "redeem":
		return c.runRedeem(ctx, args)
	case "windows":
		return c.runWindows(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) runSlots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("slots", flag.ExitOnError)
	prof := fs.Int64("prof", 0, "professional id")
	date := fs.String("date", "", "local date YYYY-MM-DD")
	minutes := fs.Int("minutes", 60, "slot length in minutes")
	tzName := fs.String("tz", "", "IANA timezone (default: DEFAULT_TZ)")
	fs.Parse(args)

	loc, err := c.location(*tzName)
	if err != nil {
		return err
	}
	day, err := time.ParseInLocation("2006-01-02", *date, loc)
	if err != nil {
		return fmt.Errorf("parse -date: %w", err)
	}

	y, m, d := day.Date()
	out, err := c.slots.ComputeDayLocal(ctx, *prof, y, m, d, loc, *minutes)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func (c *cli) runValidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	prof := fs.Int64("prof", 0, "professional id")
	start := fs.String("start", "", "slot start, RFC3339")
	minutes := fs.Int("minutes", 60, "slot length in minutes")
	fs.Parse(args)

	startAt, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	ok, reason, err := c.validate.Validate(ctx, *prof, startAt.UTC(), *minutes)
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("ok")
		return nil
	}
	fmt.Printf("not bookable: %s\n", reason)
	return nil
}

func (c *cli) runBook(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	student := fs.Int64("student", 0, "student id")
	prof := fs.Int64("prof", 0, "professional id")
	svc := fs.String("service", "", "service name")
	location := fs.String("location", "", "optional location")
	start := fs.String("start", "", "slot start, RFC3339")
	minutes := fs.Int("minutes", 60, "slot length in minutes")
	actorID := fs.Int64("actor", 0, "acting user id (0 = trusted operator)")
	fs.Parse(args)

	startAt, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	actor, err := c.actor(ctx, *actorID)
	if err != nil {
		return err
	}

	in := service.CreateAppointmentInput{
		StudentID:      *student,
		ProfessionalID: *prof,
		Service:        *svc,
		StartsAt:       startAt.UTC(),
		SlotMinutes:    *minutes,
	}
	if *location != "" {
		in.Location = location
	}

	ap, err := c.booking.Create(ctx, in, actor)
	if err != nil {
		return err
	}
	fmt.Printf("booked appointment %d at %s\n", ap.ID, timeutil.ISOUTC(ap.StartsAt))
	return nil
}

func (c *cli) runReschedule(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reschedule", flag.ExitOnError)
	id := fs.Int64("id", 0, "appointment id")
	start := fs.String("start", "", "new start, RFC3339")
	actorID := fs.Int64("actor", 0, "acting user id (0 = trusted operator)")
	fs.Parse(args)

	startAt, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	actor, err := c.actor(ctx, *actorID)
	if err != nil {
		return err
	}

	ap, err := c.booking.Reschedule(ctx, *id, startAt.UTC(), actor)
	if err != nil {
		return err
	}
	fmt.Printf("appointment %d moved to %s\n", ap.ID, timeutil.ISOUTC(ap.StartsAt))
	return nil
}

func (c *cli) runCancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.Int64("id", 0, "appointment id")
	reason := fs.String("reason", "", "cancellation reason")
	actorID := fs.Int64("actor", 0, "acting user id (0 = trusted operator)")
	fs.Parse(args)

	actor, err := c.actor(ctx, *actorID)
	if err != nil {
		return err
	}
	if err := c.booking.Cancel(ctx, *id, *reason, actor); err != nil {
		return err
	}
	fmt.Printf("appointment %d cancelled\n", *id)
	return nil
}

func (c *cli) runRedeem(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("redeem", flag.ExitOnError)
	token := fs.String("token", "", "token uuid")
	kind := fs.String("kind", "CONFIRM", "CONFIRM or CANCEL")
	fs.Parse(args)

	tok, err := uuid.Parse(*token)
	if err != nil {
		return fmt.Errorf("parse -token: %w", err)
	}

	ap, err := c.tokens.Redeem(ctx, tok, model.TokenKind(strings.ToUpper(*kind)))
	if err != nil {
		return err
	}
	fmt.Printf("appointment %d is now %s\n", ap.ID, ap.Status)
	return nil
}

func (c *cli) runWindows(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: agendactl windows <list|add|set|remove> [flags]")
	}
	sub, args := args[0], args[1:]

	fs := flag.NewFlagSet("windows "+sub, flag.ExitOnError)
	prof := fs.Int64("prof", 0, "professional id")
	tzName := fs.String("tz", "", "IANA timezone of the given clocks (default: DEFAULT_TZ)")
	weekday := fs.Int("weekday", 0, "weekday, 0 = Monday .. 6 = Sunday")
	start := fs.String("start", "", "window start HH:MM, local")
	end := fs.String("end", "", "window end HH:MM, local")
	week := fs.String("week", "", `full week as "wd start-end,wd start-end", e.g. "0 09:00-12:00,2 14:00-18:00"`)
	actorID := fs.Int64("actor", 0, "acting user id (0 = trusted operator)")
	fs.Parse(args)

	loc, err := c.location(*tzName)
	if err != nil {
		return err
	}
	actor, err := c.actor(ctx, *actorID)
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		views, err := c.schedule.ListWeek(ctx, *prof, loc)
		if err != nil {
			return err
		}
		return printJSON(views)
	case "add":
		w, err := c.schedule.AddWindow(ctx, *prof, service.WindowInput{Weekday: *weekday, Start: *start, End: *end}, loc, actor)
		if err != nil {
			return err
		}
		return printJSON(w)
	case "set":
		inputs, err := parseWeek(*week)
		if err != nil {
			return err
		}
		windows, err := c.schedule.SetWeek(ctx, *prof, inputs, loc, actor)
		if err != nil {
			return err
		}
		return printJSON(windows)
	case "remove":
		return c.schedule.RemoveWindow(ctx, *prof, *weekday, *start, loc, actor)
	default:
		return fmt.Errorf("unknown windows subcommand %q", sub)
	}
}

// parseWeek parses "wd HH:MM-HH:MM" entries separated by commas
func parseWeek(s string) ([]service.WindowInput, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []service.WindowInput
	for _, part := range strings.Split(s, ",") {
		var wd int
		var from, to string
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d %5s-%5s", &wd, &from, &to); err != nil {
			return nil, fmt.Errorf("parse week entry %q: %w", part, err)
		}
		out = append(out, service.WindowInput{Weekday: wd, Start: from, End: to})
	}
	return out, nil
}

func (c *cli) location(name string) (*time.Location, error) {
	if name == "" {
		return c.tz, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// actor resolves the acting user; id 0 means a trusted operator call with
// no authorization checks.
func (c *cli) actor(ctx context.Context, id int64) (*model.User, error) {
	if id == 0 {
		return nil, nil
	}
	u, err := c.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %d not found", id)
	}
	return u, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
