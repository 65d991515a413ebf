package model

import "time"

type Role string

const (
	RoleFamily       Role = "FAMILY"       // guardian booking for a student
	RoleProfessional Role = "PROFESSIONAL" // linked professional account
	RoleCoordination Role = "COORDINATION" // administrative role, may manage everything
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// IsCoordination checks if the user holds the administrative role
func (u *User) IsCoordination() bool {
	return u.Role == RoleCoordination
}
