package authz

import (
	"sort"

	"github.com/pacific-edu/pacemis-api/internal/models"
)

// SchoolSet is a set of school IDs.
type SchoolSet map[string]struct{}

// NewSchoolSet builds a set from IDs, ignoring blanks.
func NewSchoolSet(ids ...string) SchoolSet {
	set := make(SchoolSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s SchoolSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Intersects reports whether the two sets share any school.
func (s SchoolSet) Intersects(other SchoolSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for id := range small {
		if large.Has(id) {
			return true
		}
	}
	return false
}

// IDs returns the members in stable order.
func (s SchoolSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ActiveSchools resolves a staff member's affiliation: the schools of their
// open-ended assignments. The end-date null check is the whole test; a
// future-dated end date already removes the school from the affiliation.
//
// The resolver is role-agnostic on purpose. Admins get no "all schools"
// treatment here; callers apply the admin bypass where it matters so this
// stays pure and reusable for both the subject and target sides of a
// decision.
func ActiveSchools(assignments []models.SchoolAssignment) SchoolSet {
	set := make(SchoolSet, len(assignments))
	for _, a := range assignments {
		if a.IsOpenEnded() {
			set[a.SchoolID] = struct{}{}
		}
	}
	return set
}
