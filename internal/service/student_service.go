package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
	"github.com/pacific-edu/pacemis-api/internal/repository"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
	"github.com/pacific-edu/pacemis-api/pkg/export"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter, scope authz.Scope) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	CreateWithEnrolment(ctx context.Context, student *models.Student, enrolment *models.SchoolEnrolment) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type enrolmentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrolmentDetail, error)
	RowsByStudent(ctx context.Context, studentID string) ([]models.SchoolEnrolment, error)
	FindByID(ctx context.Context, id string) (*models.SchoolEnrolment, error)
	Create(ctx context.Context, enrolment *models.SchoolEnrolment) error
	Update(ctx context.Context, enrolment *models.SchoolEnrolment) error
	Delete(ctx context.Context, id string) error
}

type schoolReader interface {
	FindSchoolByID(ctx context.Context, id string) (*models.School, error)
}

type studentNotifier interface {
	StudentCreated(student *models.Student, enrolment *models.SchoolEnrolment, schoolName, actorName string)
}

// EnrolmentRequest creates or edits a school enrolment.
type EnrolmentRequest struct {
	SchoolID       string                    `json:"school_id" validate:"required"`
	SchoolYearCode string                    `json:"school_year_code" validate:"required"`
	ClassLevelCode string                    `json:"class_level_code" validate:"required"`
	StartDate      *time.Time                `json:"start_date"`
	EndDate        *time.Time                `json:"end_date"`
	Answers        models.FunctioningAnswers `json:"answers"`
}

// CreateStudentRequest creates a student together with their first
// enrolment.
type CreateStudentRequest struct {
	FirstName   string           `json:"first_name" validate:"required"`
	LastName    string           `json:"last_name" validate:"required"`
	DateOfBirth time.Time        `json:"date_of_birth" validate:"required"`
	Gender      *int             `json:"gender" validate:"omitempty,oneof=1 2"`
	Enrolment   EnrolmentRequest `json:"enrolment" validate:"required"`
}

// UpdateStudentRequest edits student demographics.
type UpdateStudentRequest struct {
	FirstName   string    `json:"first_name" validate:"required"`
	LastName    string    `json:"last_name" validate:"required"`
	DateOfBirth time.Time `json:"date_of_birth" validate:"required"`
	Gender      *int      `json:"gender" validate:"omitempty,oneof=1 2"`
}

// StudentService serves student listings, creation, enrolment management
// and exports under row-level access control.
type StudentService struct {
	repo       studentRepository
	enrolments enrolmentRepository
	schools    schoolReader
	notifier   studentNotifier
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, enrolments enrolmentRepository, schools schoolReader, notifier studentNotifier, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{
		repo:       repo,
		enrolments: enrolments,
		schools:    schools,
		notifier:   notifier,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// List returns the student rows the actor may see. An empty scope yields an
// empty page without touching the database.
func (s *StudentService) List(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	scope := authz.ListScope(actor, affiliated)
	if scope.Empty() {
		return []models.StudentDetail{}, 0, nil
	}
	students, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns one student if the actor's affiliation overlaps the student's
// effective schools.
func (s *StudentService) Get(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, id string) (*models.StudentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	owned, err := s.effectiveSchools(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewStudent(actor, owned, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this student")
	}
	return detail, nil
}

// Create registers a student with their first enrolment in one transaction
// and announces the registration after the commit. A duplicate enrolment
// tuple rolls the whole creation back.
func (s *StudentService) Create(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, req CreateStudentRequest) (*models.StudentDetail, error) {
	if !authz.CanCreateStudent(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create students")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !authz.CanManageEnrolment(actor, req.Enrolment.SchoolID, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to enrol students at this school")
	}

	school, err := s.schools.FindSchoolByID(ctx, req.Enrolment.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown school")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	now := s.now()
	student := &models.Student{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
	}
	student.Stamp(actor.UserID, now)

	enrolment := &models.SchoolEnrolment{
		SchoolID:           req.Enrolment.SchoolID,
		SchoolYearCode:     req.Enrolment.SchoolYearCode,
		ClassLevelCode:     req.Enrolment.ClassLevelCode,
		StartDate:          req.Enrolment.StartDate,
		EndDate:            req.Enrolment.EndDate,
		FunctioningAnswers: req.Enrolment.Answers,
	}
	enrolment.Stamp(actor.UserID, now)

	if err := s.repo.CreateWithEnrolment(ctx, student, enrolment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrolment) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an enrolment for this student, school and school year already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	// The transaction is committed; delivery problems from here on are the
	// notifier's to log, never this request's to fail.
	if s.notifier != nil {
		s.notifier.StudentCreated(student, enrolment, school.Name, actor.UserID)
	}

	return s.repo.FindByID(ctx, student.ID)
}

// Update edits student demographics.
func (s *StudentService) Update(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	owned, err := s.effectiveSchools(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditStudent(actor, owned, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this student")
	}

	student := detail.Student
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.DateOfBirth = req.DateOfBirth
	student.Gender = req.Gender
	student.Touch(actor.UserID, s.now())
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.repo.FindByID(ctx, id)
}

// Delete removes a student and their enrolments. Admin only; affiliation
// never upgrades this for school-scoped roles.
func (s *StudentService) Delete(ctx context.Context, actor *authz.Subject, id string) error {
	if !authz.CanDeleteStudent(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id), zap.String("actor_id", actor.UserID))
	return nil
}

// Enrolments lists a student's enrolment history, gated like the student.
func (s *StudentService) Enrolments(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, studentID string) ([]models.EnrolmentDetail, error) {
	owned, err := s.effectiveSchools(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewStudent(actor, owned, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this student")
	}
	enrolments, err := s.enrolments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolments")
	}
	return enrolments, nil
}

// AddEnrolment appends an enrolment to an existing student.
func (s *StudentService) AddEnrolment(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, studentID string, req EnrolmentRequest) (*models.SchoolEnrolment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrolment payload")
	}
	if !authz.CanManageEnrolment(actor, req.SchoolID, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to enrol students at this school")
	}

	enrolment := &models.SchoolEnrolment{
		StudentID:          studentID,
		SchoolID:           req.SchoolID,
		SchoolYearCode:     req.SchoolYearCode,
		ClassLevelCode:     req.ClassLevelCode,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		FunctioningAnswers: req.Answers,
	}
	enrolment.Stamp(actor.UserID, s.now())

	if err := s.enrolments.Create(ctx, enrolment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrolment) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an enrolment for this student, school and school year already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrolment")
	}
	return enrolment, nil
}

// UpdateEnrolment edits an enrolment. Both the current school and the new
// one must be within the actor's reach.
func (s *StudentService) UpdateEnrolment(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, id string, req EnrolmentRequest) (*models.SchoolEnrolment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrolment payload")
	}

	enrolment, err := s.enrolments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrolment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolment")
	}
	if !authz.CanManageEnrolment(actor, enrolment.SchoolID, affiliated) ||
		!authz.CanManageEnrolment(actor, req.SchoolID, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage enrolments for this school")
	}

	enrolment.SchoolID = req.SchoolID
	enrolment.SchoolYearCode = req.SchoolYearCode
	enrolment.ClassLevelCode = req.ClassLevelCode
	enrolment.StartDate = req.StartDate
	enrolment.EndDate = req.EndDate
	enrolment.FunctioningAnswers = req.Answers
	enrolment.Touch(actor.UserID, s.now())

	if err := s.enrolments.Update(ctx, enrolment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrolment) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an enrolment for this student, school and school year already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrolment")
	}
	return enrolment, nil
}

// DeleteEnrolment removes an enrolment within the actor's reach.
func (s *StudentService) DeleteEnrolment(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, id string) error {
	enrolment, err := s.enrolments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrolment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolment")
	}
	if !authz.CanManageEnrolment(actor, enrolment.SchoolID, affiliated) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage enrolments for this school")
	}
	if err := s.enrolments.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrolment")
	}
	return nil
}

// Export renders the actor's visible student listing as CSV or PDF. The
// listing is scoped exactly like List; an empty scope exports an empty
// table rather than an error.
func (s *StudentService) Export(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, filter models.StudentFilter, format string) ([]byte, string, string, error) {
	scope := authz.ListScope(actor, affiliated)
	dataset := export.Dataset{
		Headers: []string{"First Name", "Last Name", "Date of Birth", "School", "School Year", "Class Level"},
	}
	if !scope.Empty() {
		// Exports ignore the caller's paging and walk the whole visible
		// listing page by page, so the file is never silently truncated.
		filter.Page = 1
		filter.PageSize = 100
		for {
			students, _, err := s.repo.List(ctx, filter, scope)
			if err != nil {
				return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export students")
			}
			for _, st := range students {
				dataset.Rows = append(dataset.Rows, map[string]string{
					"First Name":    st.FirstName,
					"Last Name":     st.LastName,
					"Date of Birth": st.DateOfBirth.Format("2006-01-02"),
					"School":        deref(st.LatestSchoolName),
					"School Year":   deref(st.LatestYearLabel),
					"Class Level":   deref(st.LatestLevelLabel),
				})
			}
			if len(students) < filter.PageSize {
				break
			}
			filter.Page++
		}
	}

	switch strings.ToLower(format) {
	case "pdf":
		payload, err := export.NewPDFExporter().Render(dataset, "Student Listing")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "students.pdf", "application/pdf", nil
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "students.csv", "text/csv", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// effectiveSchools computes the target student's owning school set from
// their full enrolment history.
func (s *StudentService) effectiveSchools(ctx context.Context, studentID string) (authz.SchoolSet, error) {
	rows, err := s.enrolments.RowsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolments")
	}
	return authz.EffectiveSchools(rows, s.now()), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
