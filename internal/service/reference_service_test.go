package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
)

type mockReferenceRepo struct {
	schools   []models.School
	listCalls int
}

func (m *mockReferenceRepo) ListSchools(_ context.Context, activeOnly bool) ([]models.School, error) {
	m.listCalls++
	if !activeOnly {
		return m.schools, nil
	}
	var active []models.School
	for _, school := range m.schools {
		if school.Active {
			active = append(active, school)
		}
	}
	return active, nil
}

func (m *mockReferenceRepo) ListSchoolYears(_ context.Context) ([]models.SchoolYear, error) {
	return nil, nil
}

func (m *mockReferenceRepo) ListClassLevels(_ context.Context) ([]models.ClassLevel, error) {
	return nil, nil
}

func (m *mockReferenceRepo) ListJobTitles(_ context.Context) ([]models.JobTitle, error) {
	return nil, nil
}

type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func referenceSchools() []models.School {
	return []models.School{
		{ID: "s1", Code: "NP", Name: "North Primary", Active: true},
		{ID: "s2", Code: "SP", Name: "South Primary", Active: true},
		{ID: "s3", Code: "OC", Name: "Old Central", Active: false},
	}
}

func TestReferenceServiceCachesSchools(t *testing.T) {
	repo := &mockReferenceRepo{schools: referenceSchools()}
	cache := newMapCache()
	svc := NewReferenceService(repo, cache, time.Minute, zap.NewNop())

	first, err := svc.ActiveSchools(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := svc.ActiveSchools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)
}

func TestReferenceServiceWorksWithoutCache(t *testing.T) {
	repo := &mockReferenceRepo{schools: referenceSchools()}
	svc := NewReferenceService(repo, nil, time.Minute, zap.NewNop())

	schools, err := svc.ActiveSchools(context.Background())
	require.NoError(t, err)
	assert.Len(t, schools, 2)
	assert.Equal(t, 1, repo.listCalls)
}

func TestAllowedEnrolmentSchools(t *testing.T) {
	repo := &mockReferenceRepo{schools: referenceSchools()}
	svc := NewReferenceService(repo, nil, time.Minute, zap.NewNop())

	admin := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("Admins"), Profile: authz.ProfileStaff, GroupSize: 1}
	all, err := svc.AllowedEnrolmentSchools(context.Background(), admin, authz.SchoolSet{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	teacher := &authz.Subject{UserID: "t1", Roles: authz.NewRoleSet("Teachers"), Profile: authz.ProfileStaff, GroupSize: 1}
	mine, err := svc.AllowedEnrolmentSchools(context.Background(), teacher, authz.NewSchoolSet("s2"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "s2", mine[0].ID)

	systemStaff := &authz.Subject{UserID: "ss1", Roles: authz.NewRoleSet("System Staff"), Profile: authz.ProfileSystemUser, GroupSize: 1}
	none, err := svc.AllowedEnrolmentSchools(context.Background(), systemStaff, authz.NewSchoolSet("s1"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

// The affiliation decides the school-scoped picklist; a school that has been
// deactivated still appears for the staff assigned to it.
func TestAllowedEnrolmentSchoolsKeepInactiveAffiliation(t *testing.T) {
	repo := &mockReferenceRepo{schools: referenceSchools()}
	svc := NewReferenceService(repo, nil, time.Minute, zap.NewNop())

	teacher := &authz.Subject{UserID: "t1", Roles: authz.NewRoleSet("Teachers"), Profile: authz.ProfileStaff, GroupSize: 1}
	mine, err := svc.AllowedEnrolmentSchools(context.Background(), teacher, authz.NewSchoolSet("s1", "s3"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.ElementsMatch(t, []string{"s1", "s3"}, []string{mine[0].ID, mine[1].ID})

	admin := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("Admins"), Profile: authz.ProfileStaff, GroupSize: 1}
	all, err := svc.AllowedEnrolmentSchools(context.Background(), admin, authz.SchoolSet{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
