package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pacific-edu/pacemis-api/internal/service"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
	"github.com/pacific-edu/pacemis-api/pkg/response"
)

// UserHandler exposes account administration endpoints: pending accounts,
// profile assignment and group reassignment.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Pending godoc
// @Summary List accounts awaiting a profile
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users/pending [get]
func (h *UserHandler) Pending(c *gin.Context) {
	users, err := h.users.PendingUsers(c.Request.Context(), subjectFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// AssignStaff godoc
// @Summary Attach a staff profile and school-scope groups to an account
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.AssignStaffRequest true "Staff assignment payload"
// @Success 204
// @Router /users/staff-profile [post]
func (h *UserHandler) AssignStaff(c *gin.Context) {
	var req service.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.users.AssignStaff(c.Request.Context(), subjectFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignSystemUser godoc
// @Summary Attach a system-user profile and system-scope groups to an account
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.AssignSystemUserRequest true "System user assignment payload"
// @Success 204
// @Router /users/system-profile [post]
func (h *UserHandler) AssignSystemUser(c *gin.Context) {
	var req service.AssignSystemUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.users.AssignSystemUser(c.Request.Context(), subjectFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReassignGroups godoc
// @Summary Replace an account's group memberships
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body handler.ReassignGroupsRequest true "Group list"
// @Success 204
// @Router /users/{id}/groups [put]
func (h *UserHandler) ReassignGroups(c *gin.Context) {
	var req ReassignGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.users.ReassignGroups(c.Request.Context(), subjectFromContext(c), c.Param("id"), req.Groups); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReassignGroupsRequest is the group replacement payload.
type ReassignGroupsRequest struct {
	Groups []string `json:"groups" binding:"required,min=1"`
}
