package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/storage"
	"github.com/charlesng35/hrmatrix/pkg/logger"
	"github.com/charlesng35/hrmatrix/pkg/metrics"
)

// DefaultMaxUploadBytes caps CV uploads at 10 MiB.
const DefaultMaxUploadBytes int64 = 10 << 20

const (
	mimePDF  = "application/pdf"
	mimeDOC  = "application/msword"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	sniffBytes = 3072
)

var (
	// ErrCVNotFound indicates the CV does not exist in the caller's company.
	ErrCVNotFound = errors.New("cv: not found")
	// ErrInvalidCVStatus indicates a status outside the pipeline enum.
	ErrInvalidCVStatus = errors.New("cv: invalid status")
	// ErrFileRequired indicates an upload without a file.
	ErrFileRequired = errors.New("cv: file is required")
	// ErrEmptyFile indicates a zero-byte upload.
	ErrEmptyFile = errors.New("cv: file is empty")
	// ErrFileTooLarge indicates an upload above the size limit.
	ErrFileTooLarge = errors.New("cv: file too large")
	// ErrUnsupportedFileType indicates a declared or detected type other than PDF, DOC or DOCX.
	ErrUnsupportedFileType = errors.New("cv: unsupported file type")
)

// sniffedTypes lists, per accepted declared type, the detected types that may carry it. Legacy
// Word files are OLE containers and DOCX files are zip archives, so the container types pass too.
var sniffedTypes = map[string][]string{
	mimePDF:  {mimePDF},
	mimeDOC:  {mimeDOC, "application/x-ole-storage"},
	mimeDOCX: {mimeDOCX, "application/zip"},
}

var extensionTypes = map[string]string{
	".pdf":  mimePDF,
	".doc":  mimeDOC,
	".docx": mimeDOCX,
}

// CVOption customises CVService behaviour.
type CVOption func(*CVService)

// WithMaxUploadBytes overrides the upload size limit.
func WithMaxUploadBytes(limit int64) CVOption {
	return func(s *CVService) {
		if limit > 0 {
			s.maxUploadBytes = limit
		}
	}
}

// WithCVAudit records uploads and status changes.
func WithCVAudit(audit *AuditService) CVOption {
	return func(s *CVService) {
		s.audit = audit
	}
}

// CVService manages the tenant's CV pipeline.
type CVService struct {
	db             *gorm.DB
	store          storage.Store
	audit          *AuditService
	maxUploadBytes int64
}

// NewCVService constructs a CVService.
func NewCVService(db *gorm.DB, store storage.Store, opts ...CVOption) (*CVService, error) {
	if db == nil {
		return nil, errors.New("cv service: db is required")
	}
	if store == nil {
		return nil, errors.New("cv service: store is required")
	}

	service := &CVService{db: db, store: store, maxUploadBytes: DefaultMaxUploadBytes}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// MaxUploadBytes reports the configured upload limit.
func (s *CVService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// CVListOptions filters and paginates the pipeline.
type CVListOptions struct {
	Status       string
	JobPostingID string
	Search       string
	Page         int
	Limit        int
}

// CVSummary is a pipeline row with its review aggregate.
type CVSummary struct {
	models.CV
	AvgRating   *float64
	ReviewCount int64
}

// CVPage is one page of the pipeline.
type CVPage struct {
	Items []CVSummary
	Total int64
	Page  int
	Limit int
	Pages int64
}

// ReviewAverages holds the per-dimension means, nil when a CV has no reviews.
type ReviewAverages struct {
	Rating     *float64 `json:"rating"`
	Skills     *float64 `json:"skills"`
	Experience *float64 `json:"experience"`
	Fit        *float64 `json:"fit"`
}

// CVDetail is a CV with its reviews and their aggregate.
type CVDetail struct {
	CV          *models.CV
	Averages    ReviewAverages
	ReviewCount int
}

// UploadInput describes an uploaded CV file.
type UploadInput struct {
	FileName     string
	ContentType  string
	Size         int64
	Content      io.Reader
	JobPostingID string
}

type reviewStat struct {
	CVID        string  `gorm:"column:cv_id"`
	ReviewCount int64   `gorm:"column:review_count"`
	AvgRating   float64 `gorm:"column:avg_rating"`
}

// List returns a page of the caller's company pipeline, newest first.
func (s *CVService) List(ctx context.Context, identity auth.Identity, opts CVListOptions) (*CVPage, error) {
	ctx = ensureContext(ctx)

	page, limit := normalisePage(opts.Page, opts.Limit)

	status := strings.ToUpper(strings.TrimSpace(opts.Status))
	if status == "ALL" {
		status = ""
	}
	if status != "" && !models.IsValidCVStatus(status) {
		return nil, ErrInvalidCVStatus
	}

	jobPostingID := strings.TrimSpace(opts.JobPostingID)
	if jobPostingID != "" {
		parsed, err := parseID(jobPostingID)
		if err != nil {
			return nil, err
		}
		jobPostingID = parsed
	}

	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.CV{}).Where("cvs.company_id = ?", identity.CompanyID)
		if status != "" {
			query = query.Where("cvs.status = ?", status)
		}
		if jobPostingID != "" {
			query = query.Where("cvs.job_posting_id = ?", jobPostingID)
		}
		if search := strings.ToLower(strings.TrimSpace(opts.Search)); search != "" {
			pattern := "%" + search + "%"
			query = query.Where(
				"LOWER(cvs.original_name) LIKE ? OR cvs.uploaded_by_id IN (SELECT id FROM users WHERE company_id = ? AND LOWER(name) LIKE ?)",
				pattern, identity.CompanyID, pattern,
			)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("cv service: count cvs: %w", err)
	}

	var cvs []models.CV
	if err := filtered().
		Preload("UploadedBy").
		Preload("JobPosting").
		Order("cvs.created_at DESC, cvs.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&cvs).Error; err != nil {
		return nil, fmt.Errorf("cv service: list cvs: %w", err)
	}

	stats, err := s.reviewStats(ctx, cvs)
	if err != nil {
		return nil, err
	}

	items := make([]CVSummary, 0, len(cvs))
	for _, cv := range cvs {
		summary := CVSummary{CV: cv}
		if stat, ok := stats[cv.ID]; ok && stat.ReviewCount > 0 {
			avg := roundOneDecimal(stat.AvgRating)
			summary.AvgRating = &avg
			summary.ReviewCount = stat.ReviewCount
		}
		items = append(items, summary)
	}

	return &CVPage{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pageCount(total, limit),
	}, nil
}

func (s *CVService) reviewStats(ctx context.Context, cvs []models.CV) (map[string]reviewStat, error) {
	if len(cvs) == 0 {
		return map[string]reviewStat{}, nil
	}

	ids := make([]string, 0, len(cvs))
	for _, cv := range cvs {
		ids = append(ids, cv.ID)
	}

	var rows []reviewStat
	if err := s.db.WithContext(ctx).Model(&models.CVReview{}).
		Select("cv_id, COUNT(*) AS review_count, AVG(rating) AS avg_rating").
		Where("cv_id IN ?", ids).
		Group("cv_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("cv service: review stats: %w", err)
	}

	stats := make(map[string]reviewStat, len(rows))
	for _, row := range rows {
		stats[row.CVID] = row
	}
	return stats, nil
}

// Get returns a CV of the caller's company with its reviews, newest first.
func (s *CVService) Get(ctx context.Context, identity auth.Identity, id string) (*CVDetail, error) {
	ctx = ensureContext(ctx)

	cv, err := s.find(ctx, identity, id, func(db *gorm.DB) *gorm.DB {
		return db.
			Preload("UploadedBy").
			Preload("JobPosting").
			Preload("Reviews", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at DESC") }).
			Preload("Reviews.Reviewer")
	})
	if err != nil {
		return nil, err
	}

	return &CVDetail{
		CV:          cv,
		Averages:    ComputeAverages(cv.Reviews),
		ReviewCount: len(cv.Reviews),
	}, nil
}

// Upload validates and stores a CV file, then records it. The stored object is removed again
// when the record cannot be created.
func (s *CVService) Upload(ctx context.Context, identity auth.Identity, input UploadInput) (cv *models.CV, err error) {
	ctx = ensureContext(ctx)

	defer func() {
		switch {
		case err == nil:
			metrics.CVUploads.WithLabelValues("stored").Inc()
		case isUploadRejection(err):
			metrics.CVUploads.WithLabelValues("rejected").Inc()
		default:
			metrics.CVUploads.WithLabelValues("failed").Inc()
		}
	}()

	if input.Content == nil || strings.TrimSpace(input.FileName) == "" {
		return nil, ErrFileRequired
	}
	if input.Size == 0 {
		return nil, ErrEmptyFile
	}
	if input.Size > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	declared := declaredType(input.ContentType, input.FileName)
	if _, ok := sniffedTypes[declared]; !ok {
		return nil, ErrUnsupportedFileType
	}

	var jobPostingID *string
	if strings.TrimSpace(input.JobPostingID) != "" {
		posting, err := findJobPosting(s.db.WithContext(ctx), identity.CompanyID, input.JobPostingID)
		if err != nil {
			return nil, err
		}
		jobPostingID = &posting.ID
	}

	head := make([]byte, sniffBytes)
	n, readErr := io.ReadFull(input.Content, head)
	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("cv service: read upload: %w", readErr)
	}
	head = head[:n]
	if n == 0 {
		return nil, ErrEmptyFile
	}
	if !contentMatches(declared, mimetype.Detect(head)) {
		return nil, ErrUnsupportedFileType
	}

	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), input.Content), s.maxUploadBytes+1)
	stored, err := s.store.Save(ctx, storage.Object{
		Name:        input.FileName,
		ContentType: declared,
		Size:        input.Size,
	}, body)
	if err != nil {
		return nil, fmt.Errorf("cv service: store file: %w", err)
	}
	if stored.Size > s.maxUploadBytes {
		s.discard(ctx, stored.Locator)
		return nil, ErrFileTooLarge
	}

	record := models.CV{
		FileName:     stored.Locator,
		OriginalName: originalName(input.FileName),
		FileSize:     stored.Size,
		FileType:     declared,
		FilePath:     s.store.URL(stored.Locator),
		CompanyID:    identity.CompanyID,
		UploadedByID: identity.UserID,
		JobPostingID: jobPostingID,
		Status:       models.CVStatusNew,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.discard(ctx, stored.Locator)
		return nil, fmt.Errorf("cv service: create cv: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		CompanyID: identity.CompanyID,
		UserID:    identity.UserID,
		Actor:     identity.Email,
		Action:    "cv.upload",
		Resource:  "cv:" + record.ID,
		Result:    models.AuditResultSuccess,
		Metadata: map[string]any{
			"file_name": record.OriginalName,
			"file_size": record.FileSize,
		},
	})

	return &record, nil
}

// UpdateStatus moves a CV to status. The tenant filter is part of the write predicate.
func (s *CVService) UpdateStatus(ctx context.Context, identity auth.Identity, id, status string) (*models.CV, error) {
	ctx = ensureContext(ctx)

	cvID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if !models.IsValidCVStatus(status) {
		return nil, ErrInvalidCVStatus
	}

	result := s.db.WithContext(ctx).Model(&models.CV{}).
		Where("id = ? AND company_id = ?", cvID, identity.CompanyID).
		Update("status", status)
	if result.Error != nil {
		return nil, fmt.Errorf("cv service: update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrCVNotFound
	}

	recordAudit(s.audit, ctx, AuditEntry{
		CompanyID: identity.CompanyID,
		UserID:    identity.UserID,
		Actor:     identity.Email,
		Action:    "cv.status",
		Resource:  "cv:" + cvID,
		Result:    models.AuditResultSuccess,
		Metadata:  map[string]any{"status": status},
	})

	return s.find(ctx, identity, cvID, nil)
}

// OpenFile returns a CV of the caller's company together with a reader over its stored file.
func (s *CVService) OpenFile(ctx context.Context, identity auth.Identity, id string) (*models.CV, io.ReadCloser, error) {
	ctx = ensureContext(ctx)

	cv, err := s.find(ctx, identity, id, nil)
	if err != nil {
		return nil, nil, err
	}
	return s.open(ctx, cv)
}

// OpenStored is OpenFile addressed by the storage locator that backs the public file path.
func (s *CVService) OpenStored(ctx context.Context, identity auth.Identity, locator string) (*models.CV, io.ReadCloser, error) {
	ctx = ensureContext(ctx)

	locator = strings.TrimPrefix(strings.TrimSpace(locator), "/")
	if locator == "" {
		return nil, nil, ErrCVNotFound
	}

	var cv models.CV
	if err := s.db.WithContext(ctx).
		Where("file_name = ? AND company_id = ?", locator, identity.CompanyID).
		First(&cv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCVNotFound
		}
		return nil, nil, fmt.Errorf("cv service: get cv: %w", err)
	}
	return s.open(ctx, &cv)
}

func (s *CVService) open(ctx context.Context, cv *models.CV) (*models.CV, io.ReadCloser, error) {
	reader, err := s.store.Open(ctx, cv.FileName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrCVNotFound
		}
		return nil, nil, fmt.Errorf("cv service: open file: %w", err)
	}
	return cv, reader, nil
}

func (s *CVService) find(ctx context.Context, identity auth.Identity, id string, scope func(*gorm.DB) *gorm.DB) (*models.CV, error) {
	cvID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx)
	if scope != nil {
		query = scope(query)
	}

	var cv models.CV
	if err := query.Where("id = ? AND company_id = ?", cvID, identity.CompanyID).First(&cv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCVNotFound
		}
		return nil, fmt.Errorf("cv service: get cv: %w", err)
	}
	return &cv, nil
}

func (s *CVService) discard(ctx context.Context, locator string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), locator); err != nil {
		logger.WithModule("cvs").Warn("failed to remove orphaned upload",
			zap.String("locator", locator),
			zap.Error(err),
		)
	}
}

// ComputeAverages returns the mean of each rating dimension rounded to one decimal, or nil
// values when there are no reviews.
func ComputeAverages(reviews []models.CVReview) ReviewAverages {
	if len(reviews) == 0 {
		return ReviewAverages{}
	}

	var rating, skills, experience, fit int
	for _, review := range reviews {
		rating += review.Rating
		skills += review.Skills
		experience += review.Experience
		fit += review.Fit
	}

	mean := func(sum int) *float64 {
		value := roundOneDecimal(float64(sum) / float64(len(reviews)))
		return &value
	}

	return ReviewAverages{
		Rating:     mean(rating),
		Skills:     mean(skills),
		Experience: mean(experience),
		Fit:        mean(fit),
	}
}

func declaredType(contentType, fileName string) string {
	declared := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(declared, ";"); idx >= 0 {
		declared = strings.TrimSpace(declared[:idx])
	}
	if declared == "" || declared == "application/octet-stream" {
		return extensionTypes[strings.ToLower(filepath.Ext(fileName))]
	}
	return declared
}

func contentMatches(declared string, detected *mimetype.MIME) bool {
	accepted := sniffedTypes[declared]
	for m := detected; m != nil; m = m.Parent() {
		for _, candidate := range accepted {
			if m.Is(candidate) {
				return true
			}
		}
	}
	return false
}

func originalName(name string) string {
	return filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
}

func isUploadRejection(err error) bool {
	return errors.Is(err, ErrFileRequired) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrUnsupportedFileType) ||
		errors.Is(err, ErrJobPostingNotFound) ||
		errors.Is(err, ErrInvalidID)
}
