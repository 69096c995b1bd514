package models

import "time"

const (
	InvitationPending  = "PENDING"
	InvitationAccepted = "ACCEPTED"
	// InvitationExpired is derived for display; it is never persisted.
	InvitationExpired = "EXPIRED"
)

// Invitation grants the bearer of its token the right to join a company once.
// Only the SHA-256 digest of the token is stored.
type Invitation struct {
	BaseModel

	Email       string     `gorm:"not null;size:320;index:idx_invitations_company_email" json:"email"`
	TokenHash   string     `gorm:"not null;size:64;uniqueIndex" json:"-"`
	CompanyID   string     `gorm:"type:uuid;not null;index:idx_invitations_company_email" json:"company_id"`
	Company     *Company   `gorm:"constraint:OnDelete:CASCADE" json:"company,omitempty"`
	Role        string     `gorm:"not null;size:16" json:"role"`
	Status      string     `gorm:"not null;size:16;default:PENDING;index" json:"status"`
	InvitedByID *string    `gorm:"type:uuid" json:"invited_by_id,omitempty"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
}

// IsExpired reports whether the invitation can no longer be used at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsRedeemable reports whether the invitation is pending and unexpired.
func (i *Invitation) IsRedeemable(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}

// EffectiveStatus folds expiry into the stored status.
func (i *Invitation) EffectiveStatus(now time.Time) string {
	if i.Status == InvitationPending && i.IsExpired(now) {
		return InvitationExpired
	}
	return i.Status
}
