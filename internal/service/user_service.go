package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	GroupsOf(ctx context.Context, userID string) ([]string, error)
	ProfileKind(ctx context.Context, userID string) (authz.ProfileKind, error)
	UserSchools(ctx context.Context, userID string) ([]string, error)
	PendingUsers(ctx context.Context) ([]models.User, error)
	ReplaceGroups(ctx context.Context, userID string, groups []string) error
	AssignStaffProfile(ctx context.Context, profile *models.StaffProfile, groups []string) error
	AssignSystemUserProfile(ctx context.Context, profile *models.SystemUserProfile, groups []string) error
}

// AssignStaffRequest registers a pending user as staff.
type AssignStaffRequest struct {
	UserID    string   `json:"user_id" validate:"required"`
	StaffType string   `json:"staff_type" validate:"required,oneof=teaching non_teaching"`
	Groups    []string `json:"groups" validate:"required,min=1"`
}

// AssignSystemUserRequest registers a pending user as a system user.
type AssignSystemUserRequest struct {
	UserID        string   `json:"user_id" validate:"required"`
	Organization  string   `json:"organization" validate:"required"`
	PositionTitle string   `json:"position_title" validate:"required"`
	Groups        []string `json:"groups" validate:"required,min=1"`
}

// UserService builds the per-request permission context and manages the
// registration and role-assignment flows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Subject loads the permission context for a user: superuser flag, group
// memberships and profile kind, fresh from storage. Nothing here is cached;
// a role removed mid-session is gone on the next request.
func (s *UserService) Subject(ctx context.Context, userID string) (*authz.Subject, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	groups, err := s.repo.GroupsOf(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	kind, err := s.repo.ProfileKind(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	return &authz.Subject{
		UserID:    user.ID,
		Superuser: user.Superuser,
		Roles:     authz.NewRoleSet(groups...),
		Profile:   kind,
		GroupSize: len(groups),
	}, nil
}

// Affiliation resolves the subject's own school set from open-ended
// assignments. Empty for anyone without a staff profile.
func (s *UserService) Affiliation(ctx context.Context, userID string) (authz.SchoolSet, error) {
	ids, err := s.repo.UserSchools(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load affiliation")
	}
	return authz.NewSchoolSet(ids...), nil
}

// PendingUsers lists registrations awaiting a profile. Admin only.
func (s *UserService) PendingUsers(ctx context.Context, actor *authz.Subject) ([]models.User, error) {
	if !authz.IsAdmin(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can review pending users")
	}
	users, err := s.repo.PendingUsers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending users")
	}
	return users, nil
}

// AssignStaff attaches a staff profile to a pending user and sets their
// school-scoped groups, atomically.
func (s *UserService) AssignStaff(ctx context.Context, actor *authz.Subject, req AssignStaffRequest) error {
	if !authz.IsAdmin(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can assign staff profiles")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff assignment")
	}
	roles, err := parseScopedRoles(req.Groups, authz.SchoolScopeRoles)
	if err != nil {
		return err
	}
	if !authz.CanAssignRoles(actor, roles) {
		return appErrors.Clone(appErrors.ErrForbidden, "the Admins group can only be granted by its own members")
	}
	if kind, err := s.repo.ProfileKind(ctx, req.UserID); err == nil && kind != authz.ProfileNone {
		return appErrors.Clone(appErrors.ErrConflict, "user already has a profile")
	}

	now := time.Now().UTC()
	profile := &models.StaffProfile{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		StaffType: models.StaffType(req.StaffType),
	}
	profile.Stamp(actor.UserID, now)

	if err := s.repo.AssignStaffProfile(ctx, profile, req.Groups); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign staff profile")
	}
	s.logger.Info("staff profile assigned",
		zap.String("user_id", req.UserID),
		zap.String("actor_id", actor.UserID),
		zap.Strings("groups", req.Groups),
	)
	return nil
}

// AssignSystemUser attaches a system-user profile to a pending user and
// sets their system-scoped groups, atomically.
func (s *UserService) AssignSystemUser(ctx context.Context, actor *authz.Subject, req AssignSystemUserRequest) error {
	if !authz.IsAdmin(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can assign system-user profiles")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid system-user assignment")
	}
	roles, err := parseScopedRoles(req.Groups, authz.SystemScopeRoles)
	if err != nil {
		return err
	}
	if !authz.CanAssignRoles(actor, roles) {
		return appErrors.Clone(appErrors.ErrForbidden, "the Admins group can only be granted by its own members")
	}
	if kind, err := s.repo.ProfileKind(ctx, req.UserID); err == nil && kind != authz.ProfileNone {
		return appErrors.Clone(appErrors.ErrConflict, "user already has a profile")
	}

	now := time.Now().UTC()
	profile := &models.SystemUserProfile{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Organization:  req.Organization,
		PositionTitle: req.PositionTitle,
	}
	profile.Stamp(actor.UserID, now)

	if err := s.repo.AssignSystemUserProfile(ctx, profile, req.Groups); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign system-user profile")
	}
	s.logger.Info("system-user profile assigned",
		zap.String("user_id", req.UserID),
		zap.String("actor_id", actor.UserID),
		zap.Strings("groups", req.Groups),
	)
	return nil
}

// ReassignGroups swaps a user's role tags. The permitted tag set depends on
// the target's profile kind, and granting the Admins tag is reserved to its
// own members regardless of how valid the rest of the request is.
func (s *UserService) ReassignGroups(ctx context.Context, actor *authz.Subject, targetUserID string, groups []string) error {
	kind, err := s.repo.ProfileKind(ctx, targetUserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target profile")
	}

	var allowed []authz.Role
	switch kind {
	case authz.ProfileStaff:
		allowed = authz.SchoolScopeRoles
	case authz.ProfileSystemUser:
		allowed = authz.SystemScopeRoles
	default:
		return appErrors.Clone(appErrors.ErrValidation, "user has no profile to assign roles against")
	}

	roles, err := parseScopedRoles(groups, allowed)
	if err != nil {
		return err
	}
	if !authz.CanAssignRoles(actor, roles) {
		if authz.IsAdmin(actor) || authz.IsSchoolAdmin(actor) {
			return appErrors.Clone(appErrors.ErrForbidden, "the Admins group can only be granted by its own members")
		}
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to reassign roles")
	}

	if err := s.repo.ReplaceGroups(ctx, targetUserID, groups); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign groups")
	}
	s.logger.Info("groups reassigned",
		zap.String("user_id", targetUserID),
		zap.String("actor_id", actor.UserID),
		zap.Strings("groups", groups),
	)
	return nil
}

// parseScopedRoles maps group names onto roles and rejects any tag outside
// the permitted scope.
func parseScopedRoles(groups []string, permitted []authz.Role) ([]authz.Role, error) {
	allowed := make(map[authz.Role]struct{}, len(permitted))
	for _, r := range permitted {
		allowed[r] = struct{}{}
	}
	roles := make([]authz.Role, 0, len(groups))
	for _, g := range groups {
		role, ok := authz.ParseRole(g)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group %q", g))
		}
		if _, ok := allowed[role]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("group %q is not assignable to this profile", g))
		}
		roles = append(roles, role)
	}
	return roles, nil
}
