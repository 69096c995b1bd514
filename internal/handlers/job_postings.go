package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/services"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

type JobPostingHandler struct {
	postings *services.JobPostingService
}

func NewJobPostingHandler(postings *services.JobPostingService) *JobPostingHandler {
	return &JobPostingHandler{postings: postings}
}

type createJobPostingRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"omitempty,max=10000"`
}

type jobPostingDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// GET /api/job-postings
func (h *JobPostingHandler) List(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	postings, err := h.postings.List(requestContext(c), identity)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	items := make([]jobPostingDTO, 0, len(postings))
	for i := range postings {
		items = append(items, toJobPostingDTO(&postings[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"job_postings": items})
}

// POST /api/job-postings
func (h *JobPostingHandler) Create(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	var req createJobPostingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	posting, err := h.postings.Create(requestContext(c), identity, services.JobPostingInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"job_posting": toJobPostingDTO(posting)})
}

func toJobPostingDTO(posting *models.JobPosting) jobPostingDTO {
	return jobPostingDTO{
		ID:          posting.ID,
		Title:       posting.Title,
		Description: posting.Description,
		Status:      posting.Status,
		CreatedAt:   posting.CreatedAt,
	}
}
