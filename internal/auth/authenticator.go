package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned when the company/email/password triple does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUnauthenticated is returned when a token is missing, invalid or no longer maps to a user.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
)

// placeholderHash keeps the cost of a login for an unknown account comparable to a real one.
var placeholderHash, _ = crypto.HashPassword("hrmatrix-placeholder")

// LoginInput captures the credentials supplied to the login endpoint.
type LoginInput struct {
	Company  string
	Email    string
	Password string
}

// LoginResult carries the issued token together with the authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
	Identity  Identity
}

// Authenticator validates credentials against stored hashes and resolves bearer tokens back to
// identities.
type Authenticator struct {
	db    *gorm.DB
	jwt   *JWTService
	clock func() time.Time
}

// NewAuthenticator wires the authenticator.
func NewAuthenticator(db *gorm.DB, jwtService *JWTService) (*Authenticator, error) {
	if db == nil {
		return nil, errors.New("authenticator: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("authenticator: jwt service is required")
	}
	return &Authenticator{db: db, jwt: jwtService, clock: time.Now}, nil
}

// Login verifies the (company, email, password) triple and issues a session token.
func (a *Authenticator) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	company := strings.TrimSpace(input.Company)
	email := models.NormalizeEmail(input.Email)
	if company == "" || email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := a.db.WithContext(ctx).
		Preload("Company").
		Joins("JOIN companies ON companies.id = users.company_id").
		Where("companies.name = ? AND users.email = ?", company, email).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		crypto.VerifyPassword(placeholderHash, input.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticator: query user: %w", err)
	}

	if !crypto.VerifyPassword(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	identity, err := IdentityFromUser(&user)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := a.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    identity.UserID,
		CompanyID: identity.CompanyID,
		Role:      identity.Role,
	})
	if err != nil {
		return nil, err
	}

	now := a.clock()
	if err := a.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("authenticator: record login: %w", err)
	}
	user.LastLoginAt = &now

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: &user, Identity: identity}, nil
}

// Resolve validates a bearer token and re-reads the user it names, scoped by the tenant in
// the token. Role and profile always come from the store, never from the token.
func (a *Authenticator) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := a.jwt.ValidateAccessToken(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	var user models.User
	err = a.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", claims.UserID, claims.CompanyID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrUnauthenticated
	}
	if err != nil {
		return Identity{}, fmt.Errorf("authenticator: load user: %w", err)
	}

	return IdentityFromUser(&user)
}
