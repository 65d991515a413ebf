package model

import "time"

// Student is always booked through a guardian (the linked FAMILY user).
type Student struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	GuardianUserID int64     `json:"guardian_user_id"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
