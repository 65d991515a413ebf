package model

import "time"

type Professional struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Speciality string    `json:"speciality"`
	IsActive   bool      `json:"is_active"`
	UserID     *int64    `json:"user_id"` // optional linked account
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
