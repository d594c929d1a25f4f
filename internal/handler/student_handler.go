package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pacific-edu/pacemis-api/internal/models"
	"github.com/pacific-edu/pacemis-api/internal/service"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
	"github.com/pacific-edu/pacemis-api/pkg/response"
)

// StudentHandler exposes student, enrolment, duplicate-check and export
// endpoints.
type StudentHandler struct {
	students *service.StudentService
	matcher  *service.MatcherService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, matcher *service.MatcherService) *StudentHandler {
	return &StudentHandler{students: students, matcher: matcher}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name"
// @Param school_id query string false "Filter by latest school"
// @Param year query string false "Filter by latest school year"
// @Param level query string false "Filter by latest class level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := h.listFilter(c)
	students, total, err := h.students.List(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Register a student with an initial enrolment
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student details
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), subjectFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enrolments godoc
// @Summary List a student's enrolments
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrolments [get]
func (h *StudentHandler) Enrolments(c *gin.Context) {
	enrolments, err := h.students.Enrolments(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrolments, nil)
}

// AddEnrolment godoc
// @Summary Add an enrolment to a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.EnrolmentRequest true "Enrolment payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/enrolments [post]
func (h *StudentHandler) AddEnrolment(c *gin.Context) {
	var req service.EnrolmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrolment, err := h.students.AddEnrolment(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrolment)
}

// UpdateEnrolment godoc
// @Summary Update an enrolment
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Enrolment ID"
// @Param payload body service.EnrolmentRequest true "Enrolment payload"
// @Success 200 {object} response.Envelope
// @Router /enrolments/{id} [put]
func (h *StudentHandler) UpdateEnrolment(c *gin.Context) {
	var req service.EnrolmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrolment, err := h.students.UpdateEnrolment(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrolment, nil)
}

// DeleteEnrolment godoc
// @Summary Delete an enrolment
// @Tags Students
// @Produce json
// @Param id path string true "Enrolment ID"
// @Success 204
// @Router /enrolments/{id} [delete]
func (h *StudentHandler) DeleteEnrolment(c *gin.Context) {
	if err := h.students.DeleteEnrolment(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Matches godoc
// @Summary Find possible duplicate students
// @Description Advisory fuzzy-name check run before registering a student
// @Tags Students
// @Produce json
// @Param first_name query string false "First name"
// @Param last_name query string false "Last name"
// @Param date_of_birth query string false "Date of birth (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students/matches [get]
func (h *StudentHandler) Matches(c *gin.Context) {
	query := models.MatchQuery{
		FirstName: trimmedQuery(c, "first_name"),
		LastName:  trimmedQuery(c, "last_name"),
	}
	if raw := c.Query("date_of_birth"); raw != "" {
		dob, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_of_birth must be YYYY-MM-DD"))
			return
		}
		query.DateOfBirth = &dob
	}

	candidates, err := h.matcher.FindCandidates(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// Export godoc
// @Summary Export the visible student listing
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param search query string false "Search by name"
// @Param school_id query string false "Filter by latest school"
// @Success 200 {file} file
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	filter := h.listFilter(c)
	data, filename, contentType, err := h.students.Export(c.Request.Context(), subjectFromContext(c), affiliationFromContext(c), filter, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *StudentHandler) listFilter(c *gin.Context) models.StudentFilter {
	var filter models.StudentFilter
	filter.Search = trimmedQuery(c, "search")
	filter.SchoolID = c.Query("school_id")
	filter.YearCode = c.Query("year")
	filter.LevelCode = c.Query("level")
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
