package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleEditor UserRole = "editor"
	UserRoleViewer UserRole = "viewer"
	UserRoleUser   UserRole = "user"
)

// User is a single credential record. A record carries either a static
// API token or a bcrypt password hash, depending on how it was created.
type User struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Username      string     `gorm:"uniqueIndex;size:100" json:"username"`
	Role          UserRole   `gorm:"index;size:32" json:"role"`
	Token         *string    `gorm:"uniqueIndex;size:256" json:"-"` // static API token, nil for password users
	TokenIssuedAt *time.Time `json:"-"`
	PasswordHash  string     `gorm:"size:100" json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// HasToken reports whether the record authenticates with a static token.
func (u *User) HasToken() bool {
	return u.Token != nil && *u.Token != ""
}

// Clone returns a deep copy so stored records cannot be mutated by callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Token != nil {
		t := *u.Token
		c.Token = &t
	}
	if u.TokenIssuedAt != nil {
		t := *u.TokenIssuedAt
		c.TokenIssuedAt = &t
	}
	return &c
}
