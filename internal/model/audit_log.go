package model

import "time"

// Audit actions recorded alongside booking writes
const (
	AuditActionCreate     = "CREATE"
	AuditActionReschedule = "RESCHEDULE"
	AuditActionCancel     = "CANCEL"
	AuditActionConfirm    = "CONFIRM"
	AuditActionReplace    = "REPLACE"
)

type AuditLog struct {
	ID       int64     `json:"id"`
	UserID   *int64    `json:"user_id"` // nil for token-driven public actions
	Action   string    `json:"action"`
	Entity   string    `json:"entity"`
	EntityID *int64    `json:"entity_id"`
	At       time.Time `json:"at"`
}
