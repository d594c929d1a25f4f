package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func subjectWith(profile ProfileKind, groups ...string) *Subject {
	return &Subject{
		UserID:    "u1",
		Roles:     NewRoleSet(groups...),
		Profile:   profile,
		GroupSize: len(groups),
	}
}

func TestNewRoleSetDropsUnknownTags(t *testing.T) {
	set := NewRoleSet("Teachers", "Janitors", "Admins")
	assert.True(t, set.Has(RoleTeachers))
	assert.True(t, set.Has(RoleAdmins))
	assert.Len(t, set, 2)
}

func TestIsAdminConflatesBothAdminScopes(t *testing.T) {
	assert.True(t, IsAdmin(subjectWith(ProfileStaff, "Admins")))
	assert.True(t, IsAdmin(subjectWith(ProfileSystemUser, "System Admins")))
	assert.True(t, IsAdmin(&Subject{Superuser: true}))
	assert.False(t, IsAdmin(subjectWith(ProfileStaff, "School Admins")))
	assert.False(t, IsAdmin(subjectWith(ProfileSystemUser, "System Staff")))
}

func TestIsAdminsGroupIsStrict(t *testing.T) {
	assert.True(t, IsAdminsGroup(subjectWith(ProfileStaff, "Admins")))
	assert.True(t, IsAdminsGroup(&Subject{Superuser: true}))
	assert.False(t, IsAdminsGroup(subjectWith(ProfileSystemUser, "System Admins")))
	assert.False(t, IsAdminsGroup(subjectWith(ProfileStaff, "School Admins")))
}

func TestIsSystemLevelUser(t *testing.T) {
	assert.True(t, IsSystemLevelUser(subjectWith(ProfileSystemUser, "System Staff")))
	assert.True(t, IsSystemLevelUser(subjectWith(ProfileSystemUser, "System Admins")))
	assert.True(t, IsSystemLevelUser(subjectWith(ProfileStaff, "Admins")))
	assert.False(t, IsSystemLevelUser(subjectWith(ProfileStaff, "Teachers")))
}

func TestHasAppAccessRequiresProfileAndGroup(t *testing.T) {
	assert.True(t, HasAppAccess(subjectWith(ProfileStaff, "Teachers")))
	assert.True(t, HasAppAccess(&Subject{Superuser: true}))

	// A profile with zero groups is not enough.
	assert.False(t, HasAppAccess(subjectWith(ProfileStaff)))
	// Neither is a group with no profile.
	assert.False(t, HasAppAccess(subjectWith(ProfileNone, "Teachers")))
}

func TestNilSubjectAnswersFalseEverywhere(t *testing.T) {
	assert.False(t, IsAdmin(nil))
	assert.False(t, IsAdminsGroup(nil))
	assert.False(t, IsSchoolAdmin(nil))
	assert.False(t, IsSchoolReadOnlyStaff(nil))
	assert.False(t, IsTeacher(nil))
	assert.False(t, IsSystemReadOnlyStaff(nil))
	assert.False(t, IsSystemLevelUser(nil))
	assert.False(t, HasAppAccess(nil))
}
