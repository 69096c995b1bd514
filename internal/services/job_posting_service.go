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

var (
	// ErrJobPostingNotFound indicates the posting does not exist in the caller's company.
	ErrJobPostingNotFound = errors.New("job posting: not found")
	// ErrJobPostingTitleRequired indicates an empty title.
	ErrJobPostingTitleRequired = errors.New("job posting: title is required")
)

// JobPostingInput describes a new job posting.
type JobPostingInput struct {
	Title       string
	Description string
}

// JobPostingService manages a company's openings.
type JobPostingService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewJobPostingService constructs a JobPostingService.
func NewJobPostingService(db *gorm.DB, audit *AuditService) (*JobPostingService, error) {
	if db == nil {
		return nil, errors.New("job posting service: db is required")
	}
	return &JobPostingService{db: db, audit: audit}, nil
}

// List returns the company's postings, newest first.
func (s *JobPostingService) List(ctx context.Context, identity auth.Identity) ([]models.JobPosting, error) {
	ctx = ensureContext(ctx)

	var postings []models.JobPosting
	if err := s.db.WithContext(ctx).
		Where("company_id = ?", identity.CompanyID).
		Order("created_at DESC").
		Find(&postings).Error; err != nil {
		return nil, fmt.Errorf("job posting service: list: %w", err)
	}
	return postings, nil
}

// Create opens a posting in the caller's company.
func (s *JobPostingService) Create(ctx context.Context, identity auth.Identity, input JobPostingInput) (*models.JobPosting, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrJobPostingTitleRequired
	}

	posting := models.JobPosting{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      models.JobPostingOpen,
		CompanyID:   identity.CompanyID,
		CreatedByID: identity.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&posting).Error; err != nil {
		return nil, fmt.Errorf("job posting service: create: %w", err)
	}

	recordAudit(s.audit, ctx, auditFor(identity, "jobposting.create", "jobposting:"+posting.ID, models.AuditResultSuccess))
	return &posting, nil
}

// Get returns a posting of the caller's company.
func (s *JobPostingService) Get(ctx context.Context, identity auth.Identity, id string) (*models.JobPosting, error) {
	ctx = ensureContext(ctx)
	return findJobPosting(s.db.WithContext(ctx), identity.CompanyID, id)
}

func findJobPosting(db *gorm.DB, companyID, id string) (*models.JobPosting, error) {
	postingID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var posting models.JobPosting
	if err := db.Where("id = ? AND company_id = ?", postingID, companyID).First(&posting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobPostingNotFound
		}
		return nil, fmt.Errorf("job posting service: get: %w", err)
	}
	return &posting, nil
}
