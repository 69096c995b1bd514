package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/services"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

type ProfileHandler struct {
	users *services.UserService
}

func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

type updateProfileRequest struct {
	Name string `json:"name" validate:"required,notblank,min=2,max=255"`
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	user, err := h.users.Profile(requestContext(c), identity)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toUserDTO(user)})
}

// PUT|POST /api/profile/update
func (h *ProfileHandler) Update(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdateName(requestContext(c), identity, req.Name)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    toUserDTO(user),
	})
}
