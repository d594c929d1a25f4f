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

type systemUserRepository interface {
	List(ctx context.Context, filter models.SystemUserFilter) ([]models.SystemUserDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.SystemUserDetail, error)
	Update(ctx context.Context, profile *models.SystemUserProfile) error
}

// UpdateSystemUserRequest edits a system-user profile.
type UpdateSystemUserRequest struct {
	Organization  string `json:"organization" validate:"required"`
	PositionTitle string `json:"position_title" validate:"required"`
}

// SystemUserService serves the system-user management surface. Visibility
// is system-wide for system-level users; there is no school scoping here.
type SystemUserService struct {
	repo      systemUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSystemUserService constructs a SystemUserService.
func NewSystemUserService(repo systemUserRepository, validate *validator.Validate, logger *zap.Logger) *SystemUserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SystemUserService{repo: repo, validator: validate, logger: logger}
}

// List returns system users for system-level actors.
func (s *SystemUserService) List(ctx context.Context, actor *authz.Subject, filter models.SystemUserFilter) ([]models.SystemUserDetail, int, error) {
	if !authz.CanViewSystemUser(actor) {
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view system users")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list system users")
	}
	return users, total, nil
}

// Get returns one system user.
func (s *SystemUserService) Get(ctx context.Context, actor *authz.Subject, id string) (*models.SystemUserDetail, error) {
	if !authz.CanViewSystemUser(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view system users")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "system user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system user")
	}
	return detail, nil
}

// Update edits a system-user profile. Admin only.
func (s *SystemUserService) Update(ctx context.Context, actor *authz.Subject, id string, req UpdateSystemUserRequest) (*models.SystemUserDetail, error) {
	if !authz.CanEditSystemUser(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit system users")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid system-user update")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "system user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system user")
	}

	profile := detail.SystemUserProfile
	profile.Organization = req.Organization
	profile.PositionTitle = req.PositionTitle
	profile.Touch(actor.UserID, time.Now().UTC())
	if err := s.repo.Update(ctx, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update system user")
	}
	return s.repo.FindByID(ctx, id)
}
