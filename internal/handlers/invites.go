package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/services"
	appErrors "github.com/charlesng35/hrmatrix/pkg/errors"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

type InviteHandler struct {
	invites *services.InviteService
}

func NewInviteHandler(invites *services.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type createInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,role"`
	// CompanyID is optional; when present it must name the inviter's own company.
	CompanyID string `json:"company_id" validate:"omitempty,uuid"`
}

type acceptInviteRequest struct {
	Token    string `json:"token" validate:"required,notblank"`
	Name     string `json:"name" validate:"required,notblank,min=2"`
	Password string `json:"password" validate:"required,min=6"`
}

type invitationDTO struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

type inviteCreatedResponse struct {
	Invitation invitationDTO `json:"invitation"`
	InviteURL  string        `json:"invite_url,omitempty"`
	Warning    string        `json:"warning,omitempty"`
	Message    string        `json:"message"`
}

type inviteInfoResponse struct {
	Invite inviteInfo `json:"invite"`
}

type inviteInfo struct {
	Email     string           `json:"email"`
	Role      string           `json:"role"`
	ExpiresAt time.Time        `json:"expires_at"`
	Company   inviteCompanyDTO `json:"company"`
}

type inviteCompanyDTO struct {
	Name string `json:"name"`
}

// POST /api/invite
func (h *InviteHandler) Create(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	var req createInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if companyID := strings.TrimSpace(req.CompanyID); companyID != "" && companyID != identity.CompanyID {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	issued, err := h.invites.Issue(requestContext(c), identity, services.IssueInviteInput{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserAlreadyExists) {
			response.Error(c, appErrors.NewBadRequest("A user with this email already exists in your company"))
			return
		}
		response.Error(c, mapServiceError(err))
		return
	}

	payload := inviteCreatedResponse{
		Invitation: toInvitationDTO(issued.Invitation, h.invites.Now()),
		Message:    "Invitation sent successfully",
	}
	if !issued.Delivered {
		payload.InviteURL = issued.Link
		payload.Warning = issued.Warning
		payload.Message = "Invitation created, but the email could not be sent"
	}

	response.Success(c, http.StatusOK, payload)
}

// GET /api/invite
func (h *InviteHandler) List(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	invites, err := h.invites.List(requestContext(c), identity)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	now := h.invites.Now()
	items := make([]invitationDTO, 0, len(invites))
	for i := range invites {
		items = append(items, toInvitationDTO(&invites[i], now))
	}

	response.SuccessWithMeta(c, http.StatusOK, gin.H{"invitations": items}, response.CountMeta(len(items)))
}

// GET /api/invite/validate?token=...
func (h *InviteHandler) Validate(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.NewBadRequest("Token is required"))
		return
	}

	details, err := h.invites.Validate(requestContext(c), token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvitationNotFound):
			response.Error(c, appErrors.NewNotFound("Invitation not found"))
		case errors.Is(err, services.ErrInvitationExpired):
			response.Error(c, appErrors.NewGone("Invitation has expired"))
		case errors.Is(err, services.ErrInvitationAccepted):
			response.Error(c, appErrors.NewGone("Invitation has already been used"))
		default:
			response.Error(c, mapServiceError(err))
		}
		return
	}

	response.Success(c, http.StatusOK, inviteInfoResponse{Invite: inviteInfo{
		Email:     details.Email,
		Role:      details.Role,
		ExpiresAt: details.ExpiresAt,
		Company:   inviteCompanyDTO{Name: details.CompanyName},
	}})
}

// POST /api/invite/accept
func (h *InviteHandler) Accept(c *gin.Context) {
	var req acceptInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	_, err := h.invites.Redeem(requestContext(c), services.RedeemInput{
		Token:    req.Token,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvitationInvalid):
			response.Error(c, appErrors.NewGone("Invalid or expired invitation"))
		case errors.Is(err, services.ErrUserAlreadyExists):
			response.Error(c, appErrors.NewConflict("User already exists"))
		case errors.Is(err, services.ErrRedemptionFailed):
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		default:
			response.Error(c, mapServiceError(err))
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Account created successfully. You can now sign in."})
}

func toInvitationDTO(invite *models.Invitation, now time.Time) invitationDTO {
	if invite == nil {
		return invitationDTO{}
	}
	return invitationDTO{
		ID:         invite.ID,
		Email:      invite.Email,
		Role:       invite.Role,
		Status:     invite.EffectiveStatus(now),
		CreatedAt:  invite.CreatedAt,
		ExpiresAt:  invite.ExpiresAt,
		AcceptedAt: invite.AcceptedAt,
	}
}
