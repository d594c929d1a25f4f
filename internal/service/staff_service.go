package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
)

type staffRepository interface {
	List(ctx context.Context, filter models.StaffFilter, scope authz.Scope) ([]models.StaffDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StaffDetail, error)
	Update(ctx context.Context, profile *models.StaffProfile) error
	Assignments(ctx context.Context, staffID string) ([]models.AssignmentDetail, error)
	AssignmentRows(ctx context.Context, staffID string) ([]models.SchoolAssignment, error)
	FindAssignmentByID(ctx context.Context, id string) (*models.SchoolAssignment, error)
	CreateAssignment(ctx context.Context, assignment *models.SchoolAssignment) error
	UpdateAssignment(ctx context.Context, assignment *models.SchoolAssignment) error
	DeleteAssignment(ctx context.Context, id string) error
}

// UpdateStaffRequest edits a staff profile.
type UpdateStaffRequest struct {
	StaffType string `json:"staff_type" validate:"required,oneof=teaching non_teaching"`
}

// AssignmentRequest creates or edits a school assignment.
type AssignmentRequest struct {
	SchoolID   string     `json:"school_id" validate:"required"`
	JobTitleID string     `json:"job_title_id" validate:"required"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
}

// StaffService serves staff listings, profiles and school assignments under
// row-level access control.
type StaffService struct {
	repo      staffRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService constructs a StaffService.
func NewStaffService(repo staffRepository, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StaffService{repo: repo, validator: validate, logger: logger}
}

// List returns the staff rows the actor may see. An empty scope yields an
// empty page without touching the database.
func (s *StaffService) List(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, filter models.StaffFilter) ([]models.StaffDetail, int, error) {
	scope := authz.ListScope(actor, affiliated)
	if scope.Empty() {
		return []models.StaffDetail{}, 0, nil
	}
	staff, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return staff, total, nil
}

// Get returns one staff member if the actor's affiliation overlaps the
// target's active-assignment schools.
func (s *StaffService) Get(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, id string) (*models.StaffDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}

	owned, err := s.ownedSchools(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewStaff(actor, owned, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this staff member")
	}
	return detail, nil
}

// Update edits a staff profile.
func (s *StaffService) Update(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, id string, req UpdateStaffRequest) (*models.StaffDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff update")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}

	owned, err := s.ownedSchools(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditStaff(actor, owned, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this staff member")
	}

	profile := detail.StaffProfile
	profile.StaffType = models.StaffType(req.StaffType)
	profile.Touch(actor.UserID, time.Now().UTC())
	if err := s.repo.Update(ctx, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update staff member")
	}
	return s.repo.FindByID(ctx, id)
}

// Assignments lists a staff member's school assignments with reference
// names, gated like the profile itself.
func (s *StaffService) Assignments(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, staffID string) ([]models.AssignmentDetail, error) {
	owned, err := s.ownedSchools(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewStaff(actor, owned, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this staff member")
	}
	assignments, err := s.repo.Assignments(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// CreateAssignment adds a school assignment. The target school must be in
// the actor's affiliation unless they are an admin.
func (s *StaffService) CreateAssignment(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, staffID string, req AssignmentRequest) (*models.SchoolAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment")
	}
	if !authz.CanManageAssignment(actor, req.SchoolID, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to assign staff to this school")
	}

	assignment := &models.SchoolAssignment{
		StaffID:    staffID,
		SchoolID:   req.SchoolID,
		JobTitleID: req.JobTitleID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
	assignment.Stamp(actor.UserID, time.Now().UTC())
	if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// UpdateAssignment edits an assignment. Both the current school and the new
// one must be within the actor's reach.
func (s *StaffService) UpdateAssignment(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, id string, req AssignmentRequest) (*models.SchoolAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment")
	}

	assignment, err := s.repo.FindAssignmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if !authz.CanManageAssignment(actor, assignment.SchoolID, affiliated) ||
		!authz.CanManageAssignment(actor, req.SchoolID, affiliated) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage assignments for this school")
	}

	assignment.SchoolID = req.SchoolID
	assignment.JobTitleID = req.JobTitleID
	assignment.StartDate = req.StartDate
	assignment.EndDate = req.EndDate
	assignment.Touch(actor.UserID, time.Now().UTC())
	if err := s.repo.UpdateAssignment(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// DeleteAssignment removes an assignment within the actor's reach.
func (s *StaffService) DeleteAssignment(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet, id string) error {
	assignment, err := s.repo.FindAssignmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if !authz.CanManageAssignment(actor, assignment.SchoolID, affiliated) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage assignments for this school")
	}
	if err := s.repo.DeleteAssignment(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

// ownedSchools computes the target staff member's own affiliation for the
// relationship check.
func (s *StaffService) ownedSchools(ctx context.Context, staffID string) (authz.SchoolSet, error) {
	rows, err := s.repo.AssignmentRows(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	return authz.ActiveSchools(rows), nil
}
