package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pacific-edu/pacemis-api/internal/models"
	"github.com/pacific-edu/pacemis-api/internal/service"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
	"github.com/pacific-edu/pacemis-api/pkg/response"
)

// SystemUserHandler exposes the system-user directory.
type SystemUserHandler struct {
	systemUsers *service.SystemUserService
}

// NewSystemUserHandler constructs SystemUserHandler.
func NewSystemUserHandler(systemUsers *service.SystemUserService) *SystemUserHandler {
	return &SystemUserHandler{systemUsers: systemUsers}
}

// List godoc
// @Summary List system users
// @Tags SystemUsers
// @Produce json
// @Param search query string false "Search by name or email"
// @Param organization query string false "Filter by organization"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /system-users [get]
func (h *SystemUserHandler) List(c *gin.Context) {
	var filter models.SystemUserFilter
	filter.Search = trimmedQuery(c, "search")
	filter.Organization = trimmedQuery(c, "organization")
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	users, total, err := h.systemUsers.List(c.Request.Context(), subjectFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get system user detail
// @Tags SystemUsers
// @Produce json
// @Param id path string true "System user ID"
// @Success 200 {object} response.Envelope
// @Router /system-users/{id} [get]
func (h *SystemUserHandler) Get(c *gin.Context) {
	user, err := h.systemUsers.Get(c.Request.Context(), subjectFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Update godoc
// @Summary Update system user profile
// @Tags SystemUsers
// @Accept json
// @Produce json
// @Param id path string true "System user ID"
// @Param payload body service.UpdateSystemUserRequest true "System user payload"
// @Success 200 {object} response.Envelope
// @Router /system-users/{id} [put]
func (h *SystemUserHandler) Update(c *gin.Context) {
	var req service.UpdateSystemUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.systemUsers.Update(c.Request.Context(), subjectFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
