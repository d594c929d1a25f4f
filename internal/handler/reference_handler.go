package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pacific-edu/pacemis-api/internal/service"
	"github.com/pacific-edu/pacemis-api/pkg/response"
)

// ReferenceHandler serves the picklists the registration forms depend on.
type ReferenceHandler struct {
	reference *service.ReferenceService
}

// NewReferenceHandler constructs ReferenceHandler.
func NewReferenceHandler(reference *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{reference: reference}
}

// Schools godoc
// @Summary List active schools
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference/schools [get]
func (h *ReferenceHandler) Schools(c *gin.Context) {
	schools, err := h.reference.ActiveSchools(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}

// AllowedSchools godoc
// @Summary List the schools the caller may enrol students into
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference/allowed-schools [get]
func (h *ReferenceHandler) AllowedSchools(c *gin.Context) {
	schools, err := h.reference.AllowedEnrolmentSchools(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}

// SchoolYears godoc
// @Summary List school years
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference/school-years [get]
func (h *ReferenceHandler) SchoolYears(c *gin.Context) {
	years, err := h.reference.SchoolYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// ClassLevels godoc
// @Summary List class levels
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference/class-levels [get]
func (h *ReferenceHandler) ClassLevels(c *gin.Context) {
	levels, err := h.reference.ClassLevels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, levels, nil)
}

// JobTitles godoc
// @Summary List job titles
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference/job-titles [get]
func (h *ReferenceHandler) JobTitles(c *gin.Context) {
	titles, err := h.reference.JobTitles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, titles, nil)
}
