package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
)

type mockStaffRepo struct {
	details     map[string]models.StaffDetail
	assignments map[string][]models.SchoolAssignment
	byID        map[string]models.SchoolAssignment
	created     *models.SchoolAssignment
	deleted     []string
	listCalled  bool
}

func (m *mockStaffRepo) List(_ context.Context, _ models.StaffFilter, _ authz.Scope) ([]models.StaffDetail, int, error) {
	m.listCalled = true
	return nil, 0, nil
}

func (m *mockStaffRepo) FindByID(_ context.Context, id string) (*models.StaffDetail, error) {
	if d, ok := m.details[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStaffRepo) Update(_ context.Context, profile *models.StaffProfile) error {
	d := m.details[profile.ID]
	d.StaffProfile = *profile
	m.details[profile.ID] = d
	return nil
}

func (m *mockStaffRepo) Assignments(_ context.Context, staffID string) ([]models.AssignmentDetail, error) {
	var details []models.AssignmentDetail
	for _, a := range m.assignments[staffID] {
		details = append(details, models.AssignmentDetail{SchoolAssignment: a})
	}
	return details, nil
}

func (m *mockStaffRepo) AssignmentRows(_ context.Context, staffID string) ([]models.SchoolAssignment, error) {
	return m.assignments[staffID], nil
}

func (m *mockStaffRepo) FindAssignmentByID(_ context.Context, id string) (*models.SchoolAssignment, error) {
	if a, ok := m.byID[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStaffRepo) CreateAssignment(_ context.Context, assignment *models.SchoolAssignment) error {
	m.created = assignment
	return nil
}

func (m *mockStaffRepo) UpdateAssignment(_ context.Context, assignment *models.SchoolAssignment) error {
	m.byID[assignment.ID] = *assignment
	return nil
}

func (m *mockStaffRepo) DeleteAssignment(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func newStaffService(repo *mockStaffRepo) *StaffService {
	return NewStaffService(repo, validator.New(), zap.NewNop())
}

func schoolAdminSubject() *authz.Subject {
	return &authz.Subject{
		UserID:    "sa-1",
		Roles:     authz.NewRoleSet("School Admins"),
		Profile:   authz.ProfileStaff,
		GroupSize: 1,
	}
}

func TestStaffServiceListEmptyAffiliationShortCircuits(t *testing.T) {
	repo := &mockStaffRepo{}
	svc := newStaffService(repo)

	staff, total, err := svc.List(context.Background(), schoolAdminSubject(), authz.NewSchoolSet(), models.StaffFilter{})
	require.NoError(t, err)
	assert.Empty(t, staff)
	assert.Zero(t, total)
	assert.False(t, repo.listCalled)
}

func TestStaffServiceGetRequiresOverlap(t *testing.T) {
	repo := &mockStaffRepo{
		details: map[string]models.StaffDetail{
			"st-1": {StaffProfile: models.StaffProfile{ID: "st-1", StaffType: models.TeachingStaff}},
		},
		assignments: map[string][]models.SchoolAssignment{
			"st-1": {{ID: "a1", StaffID: "st-1", SchoolID: "s1"}},
		},
	}
	svc := newStaffService(repo)

	_, err := svc.Get(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s1"), "st-1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s2"), "st-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

// A staff member whose only assignment has an end date set has no owning
// schools, so nobody school-scoped can reach them while admins still can.
func TestStaffServiceGetEndedAssignmentsOwnNothing(t *testing.T) {
	ended := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockStaffRepo{
		details: map[string]models.StaffDetail{
			"st-1": {StaffProfile: models.StaffProfile{ID: "st-1", StaffType: models.TeachingStaff}},
		},
		assignments: map[string][]models.SchoolAssignment{
			"st-1": {{ID: "a1", StaffID: "st-1", SchoolID: "s1", EndDate: &ended}},
		},
	}
	svc := newStaffService(repo)

	_, err := svc.Get(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s1"), "st-1")
	require.Error(t, err)

	admin := &authz.Subject{UserID: "a1", Roles: authz.NewRoleSet("Admins"), Profile: authz.ProfileStaff, GroupSize: 1}
	_, err = svc.Get(context.Background(), admin, authz.NewSchoolSet(), "st-1")
	require.NoError(t, err)
}

func TestStaffServiceCreateAssignmentSchoolGate(t *testing.T) {
	repo := &mockStaffRepo{}
	svc := newStaffService(repo)

	_, err := svc.CreateAssignment(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s1"), "st-1", AssignmentRequest{
		SchoolID:   "s1",
		JobTitleID: "jt-1",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, "st-1", repo.created.StaffID)

	_, err = svc.CreateAssignment(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s1"), "st-1", AssignmentRequest{
		SchoolID:   "s2",
		JobTitleID: "jt-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Teachers cannot manage assignments at all.
	_, err = svc.CreateAssignment(context.Background(), teacherSubject(), authz.NewSchoolSet("s1"), "st-1", AssignmentRequest{
		SchoolID:   "s1",
		JobTitleID: "jt-1",
	})
	require.Error(t, err)
}

func TestStaffServiceUpdateAssignmentChecksBothSchools(t *testing.T) {
	repo := &mockStaffRepo{byID: map[string]models.SchoolAssignment{
		"a1": {ID: "a1", StaffID: "st-1", SchoolID: "s1", JobTitleID: "jt-1"},
	}}
	svc := newStaffService(repo)

	// Moving an assignment to a school outside the affiliation is denied
	// even though the current school is in reach.
	_, err := svc.UpdateAssignment(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s1"), "a1", AssignmentRequest{
		SchoolID:   "s9",
		JobTitleID: "jt-1",
	})
	require.Error(t, err)

	updated, err := svc.UpdateAssignment(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s1", "s2"), "a1", AssignmentRequest{
		SchoolID:   "s2",
		JobTitleID: "jt-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "s2", updated.SchoolID)
	assert.Equal(t, "jt-2", updated.JobTitleID)
}

func TestStaffServiceDeleteAssignment(t *testing.T) {
	repo := &mockStaffRepo{byID: map[string]models.SchoolAssignment{
		"a1": {ID: "a1", StaffID: "st-1", SchoolID: "s1"},
	}}
	svc := newStaffService(repo)

	require.Error(t, svc.DeleteAssignment(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s2"), "a1"))
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.DeleteAssignment(context.Background(), schoolAdminSubject(), authz.NewSchoolSet("s1"), "a1"))
	assert.Equal(t, []string{"a1"}, repo.deleted)
}
