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

type mockSystemUserRepo struct {
	details map[string]models.SystemUserDetail
	updated *models.SystemUserProfile
}

func (m *mockSystemUserRepo) List(_ context.Context, _ models.SystemUserFilter) ([]models.SystemUserDetail, int, error) {
	var out []models.SystemUserDetail
	for _, d := range m.details {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockSystemUserRepo) FindByID(_ context.Context, id string) (*models.SystemUserDetail, error) {
	if d, ok := m.details[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSystemUserRepo) Update(_ context.Context, profile *models.SystemUserProfile) error {
	m.updated = profile
	d := m.details[profile.ID]
	d.SystemUserProfile = *profile
	m.details[profile.ID] = d
	return nil
}

func systemStaffSubject() *authz.Subject {
	return &authz.Subject{
		UserID:    "ss-1",
		Roles:     authz.NewRoleSet("System Staff"),
		Profile:   authz.ProfileSystemUser,
		GroupSize: 1,
	}
}

func TestSystemUserServiceListVisibility(t *testing.T) {
	repo := &mockSystemUserRepo{details: map[string]models.SystemUserDetail{
		"su-1": {SystemUserProfile: models.SystemUserProfile{ID: "su-1", Organization: "Ministry"}},
	}}
	svc := NewSystemUserService(repo, validator.New(), zap.NewNop())

	// System Staff read system-wide despite being otherwise read-only.
	users, total, err := svc.List(context.Background(), systemStaffSubject(), models.SystemUserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)

	// School-scoped roles never see the system-user surface.
	_, _, err = svc.List(context.Background(), schoolAdminSubject(), models.SystemUserFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSystemUserServiceUpdateAdminOnly(t *testing.T) {
	repo := &mockSystemUserRepo{details: map[string]models.SystemUserDetail{
		"su-1": {SystemUserProfile: models.SystemUserProfile{ID: "su-1", Organization: "Ministry"}},
	}}
	svc := NewSystemUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), systemStaffSubject(), "su-1", UpdateSystemUserRequest{
		Organization:  "Ministry of Education",
		PositionTitle: "Analyst",
	})
	require.Error(t, err)
	assert.Nil(t, repo.updated)

	admin := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("System Admins"), Profile: authz.ProfileSystemUser, GroupSize: 1}
	detail, err := svc.Update(context.Background(), admin, "su-1", UpdateSystemUserRequest{
		Organization:  "Ministry of Education",
		PositionTitle: "Analyst",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ministry of Education", detail.Organization)
}
