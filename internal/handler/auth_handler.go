package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pacific-edu/pacemis-api/internal/service"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
	"github.com/pacific-edu/pacemis-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body service.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Me godoc
// @Summary Get current permission context
// @Description Returns the authenticated user's roles, profile kind and school affiliation
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	subject := subjectFromContext(c)
	if subject == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	affiliation := affiliationFromContext(c)

	response.JSON(c, http.StatusOK, gin.H{
		"user_id":   subject.UserID,
		"superuser": subject.Superuser,
		"groups":    subject.Roles.Roles(),
		"profile":   subject.Profile.String(),
		"schools":   affiliation.IDs(),
	}, nil)
}
