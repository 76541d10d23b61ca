package model

import "time"

const (
	RoleUser        = "user"
	RoleDataManager = "data_manager"
	RoleDirector    = "director"
	RoleAdmin       = "admin"
)

type User struct {
	ID          int       `json:"id"`
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Institution string    `json:"institution"`
	APIToken    string    `json:"-"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user can bypass the manager/director
// prerequisites on review actions.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) IsDataManager() bool {
	return u.Role == RoleDataManager || u.IsAdmin()
}

func (u User) IsDirector() bool {
	return u.Role == RoleDirector || u.IsAdmin()
}

func (u User) IsStaff() bool {
	return u.Role != RoleUser
}
