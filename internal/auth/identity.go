package auth

import (
	"errors"
	"strings"

	"github.com/charlesng35/hrmatrix/internal/models"
)

// Identity is the verified caller produced once at the authentication boundary and passed
// explicitly to every tenant-scoped operation.
type Identity struct {
	UserID    string `json:"id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// ErrInvalidIdentity is returned when an identity lacks user or tenant.
var ErrInvalidIdentity = errors.New("auth: identity requires user and company")

// IdentityFromUser builds the identity of a persisted user.
func IdentityFromUser(user *models.User) (Identity, error) {
	if user == nil {
		return Identity{}, ErrInvalidIdentity
	}
	id := Identity{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      models.NormalizeRole(user.Role),
		Email:     user.Email,
		Name:      user.Name,
	}
	return id, id.Validate()
}

// Validate checks the mandatory fields.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.UserID) == "" || strings.TrimSpace(i.CompanyID) == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// IsAdmin reports whether the caller administers its company.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}
