package service

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// Token outcomes. None is retriable except by using a correct,
	// unexpired token.
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenUsed     = errors.New("token already used")
	ErrTokenExpired  = errors.New("token expired")
)

// User-facing conflict reasons. Every conflict is an expected, retriable
// business outcome: the caller should pick another slot.
const (
	ReasonOutsideHours         = "outside business hours"
	ReasonSlotTaken            = "slot already taken"
	ReasonSlotRaced            = "slot was just taken by someone else"
	ReasonLeadTime             = "new start must be at least 6 hours from now"
	ReasonProfessionalInactive = "professional is not accepting bookings"
	ReasonNotActive            = "appointment is not active"
)

// ConflictError is a validation or booking conflict. It maps to a
// 409-equivalent outcome at the calling layer, never to a system fault.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

func conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

// IsConflict checks whether err is a booking conflict
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// ConflictReason extracts the user-facing reason, empty if err is not a
// conflict.
func ConflictReason(err error) string {
	var c *ConflictError
	if errors.As(err, &c) {
		return c.Reason
	}
	return ""
}
