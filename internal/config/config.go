package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string
	Environment   string
	PublicBaseURL string
	DefaultTZ     string
	TokenTTL      time.Duration
	ReminderEvery time.Duration
	MigrationsDir string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFrom      string
}

func Load() (*Config, error) {
	// Try the .env file first; plain environment variables otherwise
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		Environment:   os.Getenv("ENV"),
		PublicBaseURL: os.Getenv("APP_PUBLIC_BASE_URL"),
		DefaultTZ:     os.Getenv("DEFAULT_TZ"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:      os.Getenv("SMTP_FROM"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:8000"
	}
	if cfg.DefaultTZ == "" {
		cfg.DefaultTZ = "America/Sao_Paulo"
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}

	cfg.SMTPPort = intEnv("SMTP_PORT", 587)
	cfg.TokenTTL = time.Duration(intEnv("TOKEN_TTL_HOURS", 48)) * time.Hour
	cfg.ReminderEvery = time.Duration(intEnv("REMINDER_INTERVAL_HOURS", 1)) * time.Hour

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

func intEnv(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", name, raw, def)
		return def
	}
	return v
}
