package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/services"
	appErrors "github.com/charlesng35/hrmatrix/pkg/errors"
	"github.com/charlesng35/hrmatrix/pkg/metrics"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

// AuthHandler manages authentication flows (login/signup/me).
type AuthHandler struct {
	auth   *iauth.Authenticator
	signup *services.SignupService
	users  *services.UserService
}

func NewAuthHandler(auth *iauth.Authenticator, signup *services.SignupService, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, signup: signup, users: users}
}

type loginRequest struct {
	Company  string `json:"company" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Company  string `json:"company" validate:"required,notblank"`
	Name     string `json:"name" validate:"required,notblank,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type companyDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	Company     *companyDTO `json:"company,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userDTO   `json:"user"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), iauth.LoginInput{
		Company:  req.Company,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		if errors.Is(err, iauth.ErrInvalidCredentials) {
			response.Error(c, appErrors.ErrInvalidCredentials)
			return
		}
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserDTO(result.User),
	})
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.signup.Signup(requestContext(c), services.SignupInput{
		Company:  req.Company,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserAlreadyExists) {
			response.Error(c, appErrors.NewBadRequest("User already exists"))
			return
		}
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "User created successfully",
		"user":    toUserDTO(user),
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	user, err := h.users.Profile(requestContext(c), identity)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(user))
}

func toUserDTO(user *models.User) userDTO {
	if user == nil {
		return userDTO{}
	}
	dto := userDTO{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
	if user.Company != nil {
		dto.Company = &companyDTO{ID: user.Company.ID, Name: user.Company.Name}
	}
	return dto
}
