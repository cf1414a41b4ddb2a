package domain

import (
	"strings"
	"time"
)

// Role enumerates directory roles.
type Role string

const (
	RoleUser    Role = "USER"
	RoleSupport Role = "SUPPORT"
	RoleAdmin   Role = "ADMIN"
)

// User is the directory entry for customers, support staff and admins.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName joins first and last name, trimmed.
func (u *User) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
