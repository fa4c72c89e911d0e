package models

import (
	"time"
)

// AccountRole is the privilege level of an account
type AccountRole string

const (
	RoleUser  AccountRole = "user"
	RoleAdmin AccountRole = "admin"
)

// Account represents a staff member of the office. Accounts are either issued
// by the external identity provider (SubjectID set, no password hash) or
// registered locally by an admin (password hash set, no SubjectID until the
// provider account is linked).
type Account struct {
	ID           string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SubjectID    *string     `gorm:"uniqueIndex;type:varchar(64)" json:"subject_id,omitempty"`
	Email        string      `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string      `gorm:"size:255" json:"name"`
	Role         AccountRole `gorm:"type:varchar(20);default:'user'" json:"role"`
	PasswordHash *string     `gorm:"size:255" json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	LastLoginAt  *time.Time  `json:"last_login_at,omitempty"`
}

// TableName returns the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// IsAdmin reports whether the account has the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsExternal reports whether the account is backed by an identity-provider subject
func (a *Account) IsExternal() bool {
	return a.SubjectID != nil && *a.SubjectID != ""
}
