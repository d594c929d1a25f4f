package authz

// ScopeKind classifies a listing scope.
type ScopeKind int

const (
	// ScopeUnrestricted passes the listing query through unmodified.
	ScopeUnrestricted ScopeKind = iota
	// ScopeEmpty short-circuits to zero rows without touching the database.
	ScopeEmpty
	// ScopeSchools restricts rows to those whose latest associated school
	// is in SchoolIDs.
	ScopeSchools
)

// Scope is the row-level restriction the repositories apply to list
// queries. It is data, not SQL; each repository renders it against its own
// latest-school annotation column.
type Scope struct {
	Kind      ScopeKind
	SchoolIDs []string
}

// Unrestricted reports pass-through scope.
func (s Scope) Unrestricted() bool { return s.Kind == ScopeUnrestricted }

// Empty reports the zero-row short circuit.
func (s Scope) Empty() bool { return s.Kind == ScopeEmpty }

// ListScope computes the row-level scope for Staff and Student listings.
// Admins and system-wide readers see everything. School-scoped roles see
// rows owned by their affiliated schools, or nothing when that set is
// empty. Everyone else sees nothing, silently.
func ListScope(s *Subject, affiliated SchoolSet) Scope {
	if s == nil {
		return Scope{Kind: ScopeEmpty}
	}
	if IsAdmin(s) || IsSystemReadOnlyStaff(s) {
		return Scope{Kind: ScopeUnrestricted}
	}
	if !hasSchoolRole(s) {
		return Scope{Kind: ScopeEmpty}
	}
	if len(affiliated) == 0 {
		return Scope{Kind: ScopeEmpty}
	}
	return Scope{Kind: ScopeSchools, SchoolIDs: affiliated.IDs()}
}
