package models

import (
	"strings"
	"time"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is a member of exactly one company. Email is unique per company only.
type User struct {
	BaseModel

	Email        string   `gorm:"not null;size:320;uniqueIndex:idx_users_email_company" json:"email"`
	Name         string   `gorm:"not null" json:"name"`
	PasswordHash string   `gorm:"not null" json:"-"`
	CompanyID    string   `gorm:"type:uuid;not null;uniqueIndex:idx_users_email_company;index" json:"company_id"`
	Company      *Company `gorm:"constraint:OnDelete:CASCADE" json:"company,omitempty"`
	Role         string   `gorm:"not null;size:16;default:USER" json:"role"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// IsAdmin reports whether the user administers its company.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// NormalizeRole maps free-form input onto a known role. Anything but ADMIN is USER.
func NormalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
