package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/services"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/team
func (h *UserHandler) Team(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	members, err := h.users.ListTeam(requestContext(c), identity)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	items := make([]userDTO, 0, len(members))
	for i := range members {
		items = append(items, toUserDTO(&members[i]))
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"users": items}, response.CountMeta(len(items)))
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	user, err := h.users.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toUserDTO(user)})
}
