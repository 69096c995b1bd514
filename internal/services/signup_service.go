package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/pkg/crypto"
)

// MinPasswordLength is enforced for every password set through signup or invitation redemption.
const MinPasswordLength = 6

var (
	// ErrCompanyRequired indicates the signup named no company.
	ErrCompanyRequired = errors.New("signup: company name is required")
	// ErrEmailRequired indicates the signup named no email address.
	ErrEmailRequired = errors.New("signup: email is required")
)

// SignupInput describes a self-service registration.
type SignupInput struct {
	Company  string
	Name     string
	Email    string
	Password string
}

// SignupService registers users and provisions their company on first use.
type SignupService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewSignupService constructs a SignupService.
func NewSignupService(db *gorm.DB, audit *AuditService) (*SignupService, error) {
	if db == nil {
		return nil, errors.New("signup service: db is required")
	}
	return &SignupService{db: db, audit: audit}, nil
}

// Signup finds or creates the named company and registers the user in it. The first user of a
// company becomes its ADMIN; later users are USERs.
func (s *SignupService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	companyName := strings.TrimSpace(input.Company)
	name := strings.TrimSpace(input.Name)
	email := models.NormalizeEmail(input.Email)

	if companyName == "" {
		return nil, ErrCompanyRequired
	}
	if len([]rune(name)) < 2 {
		return nil, ErrInvalidName
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := findOrCreateCompany(tx, companyName)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.User{}).
			Where("email = ? AND company_id = ?", email, company.ID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("signup: check existing user: %w", err)
		}
		if existing > 0 {
			return ErrUserAlreadyExists
		}

		var members int64
		if err := tx.Model(&models.User{}).
			Where("company_id = ?", company.ID).
			Count(&members).Error; err != nil {
			return fmt.Errorf("signup: count members: %w", err)
		}

		role := models.RoleUser
		if members == 0 {
			role = models.RoleAdmin
		}

		user = models.User{
			Email:        email,
			Name:         name,
			PasswordHash: hashed,
			CompanyID:    company.ID,
			Role:         role,
		}
		if err := tx.Create(&user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrUserAlreadyExists
			}
			return fmt.Errorf("signup: create user: %w", err)
		}
		user.Company = company
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		CompanyID: user.CompanyID,
		UserID:    user.ID,
		Actor:     user.Email,
		Action:    "user.signup",
		Resource:  "user:" + user.ID,
		Result:    models.AuditResultSuccess,
		Metadata:  map[string]any{"role": user.Role},
	})

	return &user, nil
}

// findOrCreateCompany resolves a company by its unique name. A concurrent creator losing the
// unique index race re-reads the winner's row.
func findOrCreateCompany(tx *gorm.DB, name string) (*models.Company, error) {
	var company models.Company
	err := tx.Where("name = ?", name).First(&company).Error
	if err == nil {
		return &company, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("signup: find company: %w", err)
	}

	company = models.Company{Name: name}
	err = tx.Transaction(func(inner *gorm.DB) error {
		return inner.Create(&company).Error
	})
	if err != nil {
		if !isUniqueConstraintError(err) {
			return nil, fmt.Errorf("signup: create company: %w", err)
		}
		var winner models.Company
		if err := tx.Where("name = ?", name).First(&winner).Error; err != nil {
			return nil, fmt.Errorf("signup: find company: %w", err)
		}
		return &winner, nil
	}
	return &company, nil
}
