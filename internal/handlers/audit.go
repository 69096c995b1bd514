package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/services"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

type auditDTO struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource"`
	Result    string          `json:"result"`
	Actor     string          `json:"actor"`
	UserID    *string         `json:"user_id,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toAuditDTO(row *models.AuditLog) auditDTO {
	dto := auditDTO{
		ID:        row.ID,
		Action:    row.Action,
		Resource:  row.Resource,
		Result:    row.Result,
		Actor:     row.Actor,
		UserID:    row.UserID,
		IPAddress: row.IPAddress,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Metadata) > 0 {
		dto.Metadata = json.RawMessage(row.Metadata)
	}
	return dto
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	userID := c.Query("user_id")
	if userID == "" {
		userID = c.Query("userId")
	}
	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 50)

	rows, total, err := h.audit.ListForCompany(requestContext(c), identity, services.AuditListOptions{
		Page:     page,
		PageSize: limit,
		Filters: services.AuditFilters{
			UserID: userID,
			Action: c.Query("action"),
			Result: c.Query("result"),
		},
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	items := make([]auditDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toAuditDTO(&rows[i]))
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"entries": items}, response.NewMeta(page, limit, total))
}
