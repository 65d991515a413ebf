package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenService drives the token-gated appointment lifecycle: SCHEDULED is
// confirmed or cancelled by whoever holds the emailed capability link, with
// no login at click time.
type TokenService struct {
	tokens       TokenStore
	appointments AppointmentStore
	ttl          time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewTokenService(tokens TokenStore, appointments AppointmentStore, ttl time.Duration, logger *zap.Logger) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{
		tokens:       tokens,
		appointments: appointments,
		ttl:          ttl,
		logger:       logger,
		now:          time.Now,
	}
}

// Issue creates a fresh token. TTL is the only expiry mechanism; a token is
// never renewed.
func (s *TokenService) Issue(ctx context.Context, appointmentID int64, kind model.TokenKind, email string) (*model.AppointmentToken, error) {
	t := newToken(kind, email, s.now().Add(s.ttl))
	t.AppointmentID = appointmentID

	if err := s.tokens.Insert(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Debug("Token issued",
		zap.Int64("appointment_id", appointmentID),
		zap.String("kind", string(kind)),
	)

	return t, nil
}

// GetOrCreate reuses a still-valid token of the same kind and recipient when
// one exists, otherwise issues a new one.
func (s *TokenService) GetOrCreate(ctx context.Context, appointmentID int64, kind model.TokenKind, email string) (*model.AppointmentToken, error) {
	t, err := s.tokens.FindReusable(ctx, appointmentID, kind, email, s.now())
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}
	return s.Issue(ctx, appointmentID, kind, email)
}

// Redeem consumes a token and applies its transition: CONFIRM sets CONFIRMED
// and CANCEL sets CANCELLED, in both cases whatever the appointment's prior
// status was. Consumption and the status write are one transaction, so two
// concurrent redemptions of the same token end as one success and one
// ErrTokenUsed.
func (s *TokenService) Redeem(ctx context.Context, token uuid.UUID, kind model.TokenKind) (*model.Appointment, error) {
	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Kind != kind {
		return nil, ErrTokenNotFound
	}
	if t.ConsumedAt != nil {
		return nil, ErrTokenUsed
	}

	now := s.now()
	if !now.Before(t.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	target := model.AppointmentCancelled
	if kind == model.TokenKindConfirm {
		target = model.AppointmentConfirmed
	}

	if err := s.tokens.Consume(ctx, t.Token, target, now); err != nil {
		if errors.Is(err, base.ErrTokenConsumed) {
			return nil, ErrTokenUsed
		}
		return nil, err
	}

	ap, err := s.appointments.GetByID(ctx, t.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if ap == nil {
		return nil, fmt.Errorf("appointment %d: %w", t.AppointmentID, ErrNotFound)
	}

	s.logger.Info("Token redeemed",
		zap.Int64("appointment_id", ap.ID),
		zap.String("kind", string(kind)),
		zap.String("status", string(ap.Status)),
	)

	return ap, nil
}
