// Package authz implements the row-level access-control core: role
// classification, school affiliation, effective student ownership, the
// per-entity access decision table and the listing scope filter.
//
// Two layers apply. App-level access requires a profile (staff or system
// user) plus at least one group. Row-level access then restricts
// school-scoped roles to rows owned by their affiliated schools, while
// admins and system-level readers see everything.
//
// All functions here are pure and total: a nil subject answers false or
// empty everywhere, never panics, never errors.
package authz

import "sort"

// Role is the closed set of recognised group names. Group membership rows
// hold these as strings; anything unrecognised carries no privilege.
type Role string

const (
	// RoleAdmins is shared across both scopes and is the most-privileged
	// tag: it alone may be granted only by its own members (or superusers).
	RoleAdmins Role = "Admins"

	// School-scoped roles.
	RoleSchoolAdmins Role = "School Admins"
	RoleSchoolStaff  Role = "School Staff"
	RoleTeachers     Role = "Teachers"

	// System-scoped roles.
	RoleSystemAdmins Role = "System Admins"
	RoleSystemStaff  Role = "System Staff"
)

// SchoolScopeRoles are the tags assignable to staff profiles.
var SchoolScopeRoles = []Role{RoleAdmins, RoleSchoolAdmins, RoleSchoolStaff, RoleTeachers}

// SystemScopeRoles are the tags assignable to system-user profiles.
var SystemScopeRoles = []Role{RoleAdmins, RoleSystemAdmins, RoleSystemStaff}

// ParseRole maps a stored group name onto the closed role set.
func ParseRole(name string) (Role, bool) {
	switch Role(name) {
	case RoleAdmins, RoleSchoolAdmins, RoleSchoolStaff, RoleTeachers, RoleSystemAdmins, RoleSystemStaff:
		return Role(name), true
	}
	return "", false
}

// RoleSet is an unordered set of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from stored group names, dropping unknown tags.
func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, n := range names {
		if r, ok := ParseRole(n); ok {
			set[r] = struct{}{}
		}
	}
	return set
}

// Has reports membership of a single role.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports membership of any of the given roles.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Roles returns the members in stable order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProfileKind is the tagged profile variant attached to a user. "Has no
// profile" is a representable case, not an absent attribute.
type ProfileKind int

const (
	ProfileNone ProfileKind = iota
	ProfileStaff
	ProfileSystemUser
)

// String names the profile kind for logs and API payloads.
func (k ProfileKind) String() string {
	switch k {
	case ProfileStaff:
		return "staff"
	case ProfileSystemUser:
		return "system_user"
	default:
		return "none"
	}
}

// Subject is the permission context for one request: identity plus the
// group-membership and profile facts loaded fresh from storage. It carries
// no school data; affiliations are resolved separately and passed in where
// a decision needs them.
type Subject struct {
	UserID    string
	Superuser bool
	Roles     RoleSet
	Profile   ProfileKind
	GroupSize int // total raw group memberships, recognised or not
}

// IsAdmin reports system-wide admin standing: superuser, Admins, or System
// Admins. The two admin tags are deliberately conflated; both grant full
// access everywhere, including past school-scope restrictions.
func IsAdmin(s *Subject) bool {
	if s == nil {
		return false
	}
	return s.Superuser || s.Roles.HasAny(RoleAdmins, RoleSystemAdmins)
}

// IsAdminsGroup reports strict Admins membership (or superuser). It gates
// the single most sensitive capability: granting the Admins tag itself.
func IsAdminsGroup(s *Subject) bool {
	if s == nil {
		return false
	}
	return s.Superuser || s.Roles.Has(RoleAdmins)
}

// IsSchoolAdmin reports School Admins membership.
func IsSchoolAdmin(s *Subject) bool {
	return s != nil && s.Roles.Has(RoleSchoolAdmins)
}

// IsSchoolReadOnlyStaff reports School Staff membership (read-only,
// per-school restricted).
func IsSchoolReadOnlyStaff(s *Subject) bool {
	return s != nil && s.Roles.Has(RoleSchoolStaff)
}

// IsTeacher reports Teachers membership.
func IsTeacher(s *Subject) bool {
	return s != nil && s.Roles.Has(RoleTeachers)
}

// IsSystemReadOnlyStaff reports System Staff membership (read-only,
// system-wide).
func IsSystemReadOnlyStaff(s *Subject) bool {
	return s != nil && s.Roles.Has(RoleSystemStaff)
}

// IsSystemLevelUser reports whether the subject may see the system-user
// management surface at all. This gates UI visibility, not row data.
func IsSystemLevelUser(s *Subject) bool {
	if s == nil {
		return false
	}
	return s.Superuser || s.Roles.HasAny(RoleAdmins, RoleSystemAdmins, RoleSystemStaff)
}

// HasAppAccess requires a profile AND at least one group membership, with a
// superuser escape hatch. A profiled user with zero groups is denied.
func HasAppAccess(s *Subject) bool {
	if s == nil {
		return false
	}
	if s.Superuser {
		return true
	}
	return s.Profile != ProfileNone && s.GroupSize > 0
}

func hasSchoolRole(s *Subject) bool {
	return s != nil && s.Roles.HasAny(RoleSchoolAdmins, RoleSchoolStaff, RoleTeachers)
}
