package domain

import "time"

// Role defines the possible roles of a user account.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// User represents a registered account.
type User struct {
	ID           string     `bson:"_id,omitempty"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	FirstName    string     `bson:"first_name,omitempty"`
	LastName     string     `bson:"last_name,omitempty"`
	Role         Role       `bson:"role"`
	IsVerified   bool       `bson:"is_verified"`
	IsActive     bool       `bson:"is_active"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty"`
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
