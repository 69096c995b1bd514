package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/models"
)

var (
	// ErrDuplicateReview indicates the reviewer already scored the CV.
	ErrDuplicateReview = errors.New("review: already reviewed")
	// ErrRatingOutOfRange indicates a score outside 1..5.
	ErrRatingOutOfRange = errors.New("review: ratings must be between 1 and 5")
)

const (
	minScore = 1
	maxScore = 5
)

// ReviewInput carries the four scores and optional comments of a review.
type ReviewInput struct {
	Rating     int
	Skills     int
	Experience int
	Fit        int
	Comments   *string
}

// ReviewService records CV reviews.
type ReviewService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewReviewService constructs a ReviewService.
func NewReviewService(db *gorm.DB, audit *AuditService) (*ReviewService, error) {
	if db == nil {
		return nil, errors.New("review service: db is required")
	}
	return &ReviewService{db: db, audit: audit}, nil
}

// Create scores a CV of the caller's company. Each reviewer may review a CV once.
func (s *ReviewService) Create(ctx context.Context, identity auth.Identity, cvID string, input ReviewInput) (*models.CVReview, error) {
	ctx = ensureContext(ctx)

	id, err := parseID(cvID)
	if err != nil {
		return nil, err
	}
	for _, score := range []int{input.Rating, input.Skills, input.Experience, input.Fit} {
		if score < minScore || score > maxScore {
			return nil, ErrRatingOutOfRange
		}
	}

	var cvs int64
	if err := s.db.WithContext(ctx).Model(&models.CV{}).
		Where("id = ? AND company_id = ?", id, identity.CompanyID).
		Count(&cvs).Error; err != nil {
		return nil, fmt.Errorf("review service: find cv: %w", err)
	}
	if cvs == 0 {
		return nil, ErrCVNotFound
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.CVReview{}).
		Where("cv_id = ? AND reviewer_id = ?", id, identity.UserID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("review service: check existing: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateReview
	}

	review := models.CVReview{
		CVID:       id,
		ReviewerID: identity.UserID,
		Rating:     input.Rating,
		Skills:     input.Skills,
		Experience: input.Experience,
		Fit:        input.Fit,
		Comments:   optionalString(input.Comments),
		Status:     models.ReviewStatusCompleted,
	}
	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("review service: create review: %w", err)
	}

	var reviewer models.User
	if err := s.db.WithContext(ctx).Select("id", "name", "email").First(&reviewer, "id = ?", identity.UserID).Error; err == nil {
		review.Reviewer = &reviewer
	}

	recordAudit(s.audit, ctx, AuditEntry{
		CompanyID: identity.CompanyID,
		UserID:    identity.UserID,
		Actor:     identity.Email,
		Action:    "cv.review",
		Resource:  "cv:" + id,
		Result:    models.AuditResultSuccess,
		Metadata:  map[string]any{"rating": review.Rating},
	})

	return &review, nil
}
