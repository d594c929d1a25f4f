package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListScopeUnrestrictedReaders(t *testing.T) {
	for _, s := range []*Subject{
		subjectWith(ProfileStaff, "Admins"),
		subjectWith(ProfileSystemUser, "System Admins"),
		subjectWith(ProfileSystemUser, "System Staff"),
		{Superuser: true},
	} {
		scope := ListScope(s, nil)
		assert.True(t, scope.Unrestricted())
	}
}

// A school-scoped user with an empty affiliation gets zero rows, not an
// error and not an unfiltered listing.
func TestListScopeEmptyAffiliationYieldsNothing(t *testing.T) {
	for _, s := range []*Subject{
		subjectWith(ProfileStaff, "Teachers"),
		subjectWith(ProfileStaff, "School Admins"),
		subjectWith(ProfileStaff, "School Staff"),
	} {
		scope := ListScope(s, NewSchoolSet())
		assert.True(t, scope.Empty())
	}
}

func TestListScopeSchoolRestriction(t *testing.T) {
	teacher := subjectWith(ProfileStaff, "Teachers")
	scope := ListScope(teacher, NewSchoolSet("s2", "s1"))

	assert.Equal(t, ScopeSchools, scope.Kind)
	assert.Equal(t, []string{"s1", "s2"}, scope.SchoolIDs)
}

func TestListScopeNoQualifyingRole(t *testing.T) {
	assert.True(t, ListScope(subjectWith(ProfileStaff), NewSchoolSet("s1")).Empty())
	assert.True(t, ListScope(nil, NewSchoolSet("s1")).Empty())
}
