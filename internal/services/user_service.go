package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/models"
)

// UserService exposes tenant-scoped user reads and profile updates.
type UserService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, audit: audit}, nil
}

// Get returns a member of the caller's company. Users of other companies are reported as not found.
func (s *UserService) Get(ctx context.Context, identity auth.Identity, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).
		Preload("Company").
		Where("id = ? AND company_id = ?", userID, identity.CompanyID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// Profile returns the caller's own record.
func (s *UserService) Profile(ctx context.Context, identity auth.Identity) (*models.User, error) {
	return s.Get(ctx, identity, identity.UserID)
}

// ListTeam returns every member of the caller's company ordered by name.
func (s *UserService) ListTeam(ctx context.Context, identity auth.Identity) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("company_id = ?", identity.CompanyID).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list team: %w", err)
	}
	return users, nil
}

// UpdateName changes the caller's display name.
func (s *UserService) UpdateName(ctx context.Context, identity auth.Identity, name string) (*models.User, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return nil, ErrInvalidName
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND company_id = ?", identity.UserID, identity.CompanyID).
		Update("name", name)
	if result.Error != nil {
		return nil, fmt.Errorf("user service: update name: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	recordAudit(s.audit, ctx, auditFor(identity, "profile.update", "user:"+identity.UserID, models.AuditResultSuccess))

	return s.Profile(ctx, identity)
}
