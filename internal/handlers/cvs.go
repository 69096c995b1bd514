package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/services"
	appErrors "github.com/charlesng35/hrmatrix/pkg/errors"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

// multipartOverhead is the allowance for form boundaries and fields on top of the file itself.
const multipartOverhead = 1 << 20

type CVHandler struct {
	cvs     *services.CVService
	reviews *services.ReviewService
}

func NewCVHandler(cvs *services.CVService, reviews *services.ReviewService) *CVHandler {
	return &CVHandler{cvs: cvs, reviews: reviews}
}

type updateCVStatusRequest struct {
	Status string `json:"status" validate:"required,notblank"`
}

type createReviewRequest struct {
	Rating     int     `json:"rating" validate:"required,score"`
	Skills     int     `json:"skills" validate:"required,score"`
	Experience int     `json:"experience" validate:"required,score"`
	Fit        int     `json:"fit" validate:"required,score"`
	Comments   *string `json:"comments" validate:"omitempty,max=5000"`
}

type personDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type jobPostingRefDTO struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type cvDTO struct {
	ID           string            `json:"id"`
	OriginalName string            `json:"original_name"`
	FileName     string            `json:"file_name"`
	FileSize     int64             `json:"file_size"`
	FileType     string            `json:"file_type"`
	FilePath     string            `json:"file_path"`
	Status       string            `json:"status"`
	JobPostingID *string           `json:"job_posting_id,omitempty"`
	JobPosting   *jobPostingRefDTO `json:"job_posting,omitempty"`
	UploadedBy   *personDTO        `json:"uploaded_by,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type cvSummaryDTO struct {
	cvDTO
	AvgRating   *float64 `json:"avg_rating"`
	ReviewCount int64    `json:"review_count"`
}

type cvDetailDTO struct {
	cvDTO
	Reviews     []reviewDTO             `json:"reviews"`
	Averages    services.ReviewAverages `json:"averages"`
	ReviewCount int                     `json:"review_count"`
}

type reviewDTO struct {
	ID         string     `json:"id"`
	CVID       string     `json:"cv_id"`
	Rating     int        `json:"rating"`
	Skills     int        `json:"skills"`
	Experience int        `json:"experience"`
	Fit        int        `json:"fit"`
	Comments   *string    `json:"comments,omitempty"`
	Status     string     `json:"status"`
	Reviewer   *personDTO `json:"reviewer,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type paginationDTO struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// GET /api/cv
func (h *CVHandler) List(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	jobPostingID := c.Query("job_posting_id")
	if jobPostingID == "" {
		jobPostingID = c.Query("jobPostingId")
	}

	page, err := h.cvs.List(requestContext(c), identity, services.CVListOptions{
		Status:       c.Query("status"),
		JobPostingID: jobPostingID,
		Search:       c.Query("search"),
		Page:         parseIntQuery(c, "page", 1),
		Limit:        parseIntQuery(c, "limit", 10),
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	items := make([]cvSummaryDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, cvSummaryDTO{
			cvDTO:       toCVDTO(&page.Items[i].CV),
			AvgRating:   page.Items[i].AvgRating,
			ReviewCount: page.Items[i].ReviewCount,
		})
	}

	response.SuccessWithMeta(c, http.StatusOK, gin.H{
		"cvs": items,
		"pagination": paginationDTO{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	}, response.NewMeta(page.Page, page.Limit, page.Total))
}

// POST /api/cv/upload
func (h *CVHandler) Upload(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cvs.MaxUploadBytes()+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.Error(c, mapServiceError(services.ErrFileTooLarge))
		case errors.Is(err, http.ErrMissingFile):
			response.Error(c, mapServiceError(services.ErrFileRequired))
		default:
			response.Error(c, appErrors.NewBadRequest("Invalid multipart form"))
		}
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	defer file.Close()

	jobPostingID := c.PostForm("job_posting_id")
	if jobPostingID == "" {
		jobPostingID = c.PostForm("jobPostingId")
	}

	cv, err := h.cvs.Upload(requestContext(c), identity, services.UploadInput{
		FileName:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Content:      file,
		JobPostingID: jobPostingID,
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cv": toCVDTO(cv)})
}

// GET /api/cv/:id
func (h *CVHandler) Get(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	detail, err := h.cvs.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	reviews := make([]reviewDTO, 0, len(detail.CV.Reviews))
	for i := range detail.CV.Reviews {
		reviews = append(reviews, toReviewDTO(&detail.CV.Reviews[i]))
	}

	response.Success(c, http.StatusOK, gin.H{"cv": cvDetailDTO{
		cvDTO:       toCVDTO(detail.CV),
		Reviews:     reviews,
		Averages:    detail.Averages,
		ReviewCount: detail.ReviewCount,
	}})
}

// GET /api/cv/:id/file
func (h *CVHandler) File(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	cv, reader, err := h.cvs.OpenFile(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	streamCV(c, cv, reader)
}

// GET /uploads/*name
func (h *CVHandler) StoredFile(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	cv, reader, err := h.cvs.OpenStored(requestContext(c), identity, c.Param("name"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	streamCV(c, cv, reader)
}

func streamCV(c *gin.Context, cv *models.CV, reader io.ReadCloser) {
	defer reader.Close()

	name := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(cv.OriginalName)
	c.DataFromReader(http.StatusOK, cv.FileSize, cv.FileType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="%s"`, name),
		"Cache-Control":       "private, no-store",
	})
}

// PATCH /api/cv/:id/status
func (h *CVHandler) UpdateStatus(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	var req updateCVStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	cv, err := h.cvs.UpdateStatus(requestContext(c), identity, c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cv": gin.H{
		"id":            cv.ID,
		"status":        cv.Status,
		"original_name": cv.OriginalName,
	}})
}

// POST /api/cv/:id/review
func (h *CVHandler) Review(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	var req createReviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	review, err := h.reviews.Create(requestContext(c), identity, c.Param("id"), services.ReviewInput{
		Rating:     req.Rating,
		Skills:     req.Skills,
		Experience: req.Experience,
		Fit:        req.Fit,
		Comments:   req.Comments,
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"review": toReviewDTO(review)})
}

func toCVDTO(cv *models.CV) cvDTO {
	if cv == nil {
		return cvDTO{}
	}
	dto := cvDTO{
		ID:           cv.ID,
		OriginalName: cv.OriginalName,
		FileName:     cv.FileName,
		FileSize:     cv.FileSize,
		FileType:     cv.FileType,
		FilePath:     cv.FilePath,
		Status:       cv.Status,
		JobPostingID: cv.JobPostingID,
		CreatedAt:    cv.CreatedAt,
		UpdatedAt:    cv.UpdatedAt,
	}
	if cv.JobPosting != nil {
		dto.JobPosting = &jobPostingRefDTO{ID: cv.JobPosting.ID, Title: cv.JobPosting.Title}
	}
	if cv.UploadedBy != nil {
		dto.UploadedBy = &personDTO{ID: cv.UploadedBy.ID, Name: cv.UploadedBy.Name, Email: cv.UploadedBy.Email}
	}
	return dto
}

func toReviewDTO(review *models.CVReview) reviewDTO {
	dto := reviewDTO{
		ID:         review.ID,
		CVID:       review.CVID,
		Rating:     review.Rating,
		Skills:     review.Skills,
		Experience: review.Experience,
		Fit:        review.Fit,
		Comments:   review.Comments,
		Status:     review.Status,
		CreatedAt:  review.CreatedAt,
	}
	if review.Reviewer != nil {
		dto.Reviewer = &personDTO{ID: review.Reviewer.ID, Name: review.Reviewer.Name, Email: review.Reviewer.Email}
	}
	return dto
}
