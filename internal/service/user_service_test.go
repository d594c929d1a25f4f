package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
)

type mockUserRepo struct {
	users         map[string]models.User
	groups        map[string][]string
	kinds         map[string]authz.ProfileKind
	schools       map[string][]string
	pending       []models.User
	replaced      map[string][]string
	staffProfiles []*models.StaffProfile
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) GroupsOf(_ context.Context, userID string) ([]string, error) {
	return m.groups[userID], nil
}

func (m *mockUserRepo) ProfileKind(_ context.Context, userID string) (authz.ProfileKind, error) {
	return m.kinds[userID], nil
}

func (m *mockUserRepo) UserSchools(_ context.Context, userID string) ([]string, error) {
	return m.schools[userID], nil
}

func (m *mockUserRepo) PendingUsers(_ context.Context) ([]models.User, error) {
	return m.pending, nil
}

func (m *mockUserRepo) ReplaceGroups(_ context.Context, userID string, groups []string) error {
	if m.replaced == nil {
		m.replaced = make(map[string][]string)
	}
	m.replaced[userID] = groups
	return nil
}

func (m *mockUserRepo) AssignStaffProfile(_ context.Context, profile *models.StaffProfile, groups []string) error {
	m.staffProfiles = append(m.staffProfiles, profile)
	if m.replaced == nil {
		m.replaced = make(map[string][]string)
	}
	m.replaced[profile.UserID] = groups
	return nil
}

func (m *mockUserRepo) AssignSystemUserProfile(_ context.Context, profile *models.SystemUserProfile, groups []string) error {
	if m.replaced == nil {
		m.replaced = make(map[string][]string)
	}
	m.replaced[profile.UserID] = groups
	return nil
}

func newUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop())
}

func TestUserServiceSubjectLoadsFreshFacts(t *testing.T) {
	repo := &mockUserRepo{
		users:  map[string]models.User{"u1": {ID: "u1", Active: true}},
		groups: map[string][]string{"u1": {"Teachers", "Choir"}},
		kinds:  map[string]authz.ProfileKind{"u1": authz.ProfileStaff},
	}
	svc := newUserService(repo)

	subject, err := svc.Subject(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, subject.Roles.Has(authz.RoleTeachers))
	// Unknown tags carry no privilege but still count toward app access.
	assert.Equal(t, 2, subject.GroupSize)
	assert.Equal(t, authz.ProfileStaff, subject.Profile)
	assert.True(t, authz.HasAppAccess(subject))
}

func TestUserServiceSubjectInactiveAccount(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{"u1": {ID: "u1", Active: false}}}
	svc := newUserService(repo)

	_, err := svc.Subject(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestUserServicePendingUsersAdminOnly(t *testing.T) {
	repo := &mockUserRepo{pending: []models.User{{ID: "u9"}}}
	svc := newUserService(repo)

	admin := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("Admins"), Profile: authz.ProfileStaff, GroupSize: 1}
	users, err := svc.PendingUsers(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	schoolAdmin := &authz.Subject{UserID: "sa1", Roles: authz.NewRoleSet("School Admins"), Profile: authz.ProfileStaff, GroupSize: 1}
	_, err = svc.PendingUsers(context.Background(), schoolAdmin)
	require.Error(t, err)
}

// Granting the Admins tag requires strict Admins membership. A School
// Admins member is rejected even with an otherwise valid request, and
// nothing is persisted.
func TestUserServiceReassignGroupsAdminsCeiling(t *testing.T) {
	repo := &mockUserRepo{kinds: map[string]authz.ProfileKind{"target": authz.ProfileStaff}}
	svc := newUserService(repo)

	schoolAdmin := &authz.Subject{UserID: "sa1", Roles: authz.NewRoleSet("School Admins"), Profile: authz.ProfileStaff, GroupSize: 1}

	err := svc.ReassignGroups(context.Background(), schoolAdmin, "target", []string{"Teachers", "Admins"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.replaced)

	// The same actor may reassign non-Admins tags.
	require.NoError(t, svc.ReassignGroups(context.Background(), schoolAdmin, "target", []string{"Teachers"}))
	assert.Equal(t, []string{"Teachers"}, repo.replaced["target"])

	// Strict Admins members may grant the tag.
	admins := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("Admins"), Profile: authz.ProfileStaff, GroupSize: 1}
	require.NoError(t, svc.ReassignGroups(context.Background(), admins, "target", []string{"Admins"}))
}

func TestUserServiceReassignGroupsScopeMismatch(t *testing.T) {
	repo := &mockUserRepo{kinds: map[string]authz.ProfileKind{"target": authz.ProfileStaff}}
	svc := newUserService(repo)
	admin := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("Admins"), Profile: authz.ProfileStaff, GroupSize: 1}

	// System-scope tags cannot be attached to a staff profile.
	err := svc.ReassignGroups(context.Background(), admin, "target", []string{"System Staff"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceAssignStaff(t *testing.T) {
	repo := &mockUserRepo{kinds: map[string]authz.ProfileKind{}}
	svc := newUserService(repo)
	admin := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("Admins"), Profile: authz.ProfileStaff, GroupSize: 1}

	err := svc.AssignStaff(context.Background(), admin, AssignStaffRequest{
		UserID:    "u9",
		StaffType: "teaching",
		Groups:    []string{"Teachers"},
	})
	require.NoError(t, err)
	require.Len(t, repo.staffProfiles, 1)
	assert.Equal(t, models.TeachingStaff, repo.staffProfiles[0].StaffType)
	assert.Equal(t, []string{"Teachers"}, repo.replaced["u9"])
}

func TestUserServiceAssignStaffRejectsExistingProfile(t *testing.T) {
	repo := &mockUserRepo{kinds: map[string]authz.ProfileKind{"u9": authz.ProfileSystemUser}}
	svc := newUserService(repo)
	admin := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("Admins"), Profile: authz.ProfileStaff, GroupSize: 1}

	err := svc.AssignStaff(context.Background(), admin, AssignStaffRequest{
		UserID:    "u9",
		StaffType: "teaching",
		Groups:    []string{"Teachers"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
