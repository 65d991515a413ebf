package model

import (
	"time"

	"github.com/google/uuid"
)

type TokenKind string

const (
	TokenKindConfirm TokenKind = "CONFIRM"
	TokenKindCancel  TokenKind = "CANCEL"
)

// AppointmentToken is a single-use capability: the UUID itself is the primary
// key and is used directly as an unguessable URL path segment.
type AppointmentToken struct {
	Token         uuid.UUID  `json:"token"`
	AppointmentID int64      `json:"appointment_id"`
	Kind          TokenKind  `json:"kind"`
	Email         string     `json:"email"` // recipient
	ExpiresAt     time.Time  `json:"expires_at"`
	ConsumedAt    *time.Time `json:"consumed_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsUsable checks if the token can still be redeemed at the given moment
func (t *AppointmentToken) IsUsable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}
