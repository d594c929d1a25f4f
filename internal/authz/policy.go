package authz

// Entity names the row kinds the decision table covers.
type Entity int

const (
	EntityStaff Entity = iota
	EntitySystemUser
	EntityStudent
)

// Capability names the gated operations.
type Capability int

const (
	CapView Capability = iota
	CapCreate
	CapEdit
	CapDelete
)

// grant describes one row of the decision table: which non-admin standings
// may attempt the capability, and whether the target's owning schools must
// intersect the subject's affiliation. Admins always pass and are handled
// before the table is consulted.
type grant struct {
	schoolRoles      []Role
	systemWideRoles  []Role
	needsOwnedSchool bool
}

// decisionTable is the single source of truth for entity x capability
// access. Every exported Can* function below reduces to one lookup here.
var decisionTable = map[Entity]map[Capability]grant{
	EntityStaff: {
		CapView: {
			schoolRoles:      []Role{RoleSchoolAdmins, RoleSchoolStaff, RoleTeachers},
			systemWideRoles:  []Role{RoleSystemStaff},
			needsOwnedSchool: true,
		},
		CapCreate: {}, // admins only
		CapEdit: {
			schoolRoles:      []Role{RoleSchoolAdmins},
			needsOwnedSchool: true,
		},
		CapDelete: {}, // admins only
	},
	EntitySystemUser: {
		// System users carry no school concept; visibility is system-wide
		// for system-level readers, mutation is admin-only.
		CapView:   {systemWideRoles: []Role{RoleSystemStaff}},
		CapCreate: {},
		CapEdit:   {},
		CapDelete: {},
	},
	EntityStudent: {
		CapView: {
			schoolRoles:      []Role{RoleSchoolAdmins, RoleSchoolStaff, RoleTeachers},
			systemWideRoles:  []Role{RoleSystemStaff},
			needsOwnedSchool: true,
		},
		CapCreate: {
			schoolRoles: []Role{RoleSchoolAdmins, RoleTeachers},
		},
		CapEdit: {
			schoolRoles:      []Role{RoleSchoolAdmins, RoleTeachers},
			needsOwnedSchool: true,
		},
		CapDelete: {}, // admins only, deliberately
	},
}

// Decide answers one cell of the decision table. ownedSchools is the
// target's effective/owning school set; affiliated is the subject's
// affiliation set. Denial is a false return, never an error.
func Decide(s *Subject, entity Entity, cap Capability, ownedSchools, affiliated SchoolSet) bool {
	if s == nil {
		return false
	}
	if IsAdmin(s) {
		return true
	}
	g, ok := decisionTable[entity][cap]
	if !ok {
		return false
	}
	if s.Roles.HasAny(g.systemWideRoles...) {
		return true
	}
	if !s.Roles.HasAny(g.schoolRoles...) {
		return false
	}
	if !g.needsOwnedSchool {
		return true
	}
	return ownedSchools.Intersects(affiliated)
}

// CanViewStaff gates reading a staff row. ownedSchools is the target staff
// member's active-assignment school set.
func CanViewStaff(s *Subject, ownedSchools, affiliated SchoolSet) bool {
	return Decide(s, EntityStaff, CapView, ownedSchools, affiliated)
}

// CanEditStaff gates editing a staff profile.
func CanEditStaff(s *Subject, ownedSchools, affiliated SchoolSet) bool {
	return Decide(s, EntityStaff, CapEdit, ownedSchools, affiliated)
}

// CanCreateStaff gates registering a new staff profile. Admin-only.
func CanCreateStaff(s *Subject) bool {
	return Decide(s, EntityStaff, CapCreate, nil, nil)
}

// CanViewSystemUser gates reading a system-user row.
func CanViewSystemUser(s *Subject) bool {
	return Decide(s, EntitySystemUser, CapView, nil, nil)
}

// CanEditSystemUser gates editing a system-user profile. Admin-only.
func CanEditSystemUser(s *Subject) bool {
	return Decide(s, EntitySystemUser, CapEdit, nil, nil)
}

// CanCreateSystemUser gates registering a new system-user profile.
func CanCreateSystemUser(s *Subject) bool {
	return Decide(s, EntitySystemUser, CapCreate, nil, nil)
}

// CanViewStudent gates reading a student row. ownedSchools must come from
// EffectiveSchools, not from raw enrolment rows.
func CanViewStudent(s *Subject, ownedSchools, affiliated SchoolSet) bool {
	return Decide(s, EntityStudent, CapView, ownedSchools, affiliated)
}

// CanCreateStudent gates creating a student. Teachers and school admins may
// create; read-only staff may not. The enrolment school is checked
// separately by CanManageEnrolment.
func CanCreateStudent(s *Subject) bool {
	return Decide(s, EntityStudent, CapCreate, nil, nil)
}

// CanEditStudent gates editing student demographics.
func CanEditStudent(s *Subject, ownedSchools, affiliated SchoolSet) bool {
	return Decide(s, EntityStudent, CapEdit, ownedSchools, affiliated)
}

// CanDeleteStudent gates student deletion. Admin-only; school-scoped roles
// never qualify regardless of affiliation.
func CanDeleteStudent(s *Subject) bool {
	return Decide(s, EntityStudent, CapDelete, nil, nil)
}

// CanManageAssignment gates create/edit/delete of a school assignment tied
// to schoolID. A school admin may only touch assignments at schools they
// are affiliated with. An empty schoolID (target school not chosen yet)
// allows the attempt; the concrete school is re-checked on submission.
func CanManageAssignment(s *Subject, schoolID string, affiliated SchoolSet) bool {
	if s == nil {
		return false
	}
	if IsAdmin(s) {
		return true
	}
	if !IsSchoolAdmin(s) {
		return false
	}
	if schoolID == "" {
		return len(affiliated) > 0
	}
	return affiliated.Has(schoolID)
}

// CanManageEnrolment gates create/edit/delete of a school enrolment tied to
// schoolID. Teachers and school admins qualify, restricted to their own
// schools.
func CanManageEnrolment(s *Subject, schoolID string, affiliated SchoolSet) bool {
	if s == nil {
		return false
	}
	if IsAdmin(s) {
		return true
	}
	if !s.Roles.HasAny(RoleSchoolAdmins, RoleTeachers) {
		return false
	}
	if schoolID == "" {
		return len(affiliated) > 0
	}
	return affiliated.Has(schoolID)
}

// CanAssignRoles gates group re-assignment. System and school admins may
// reassign tags, but the Admins tag itself is grantable only by strict
// Admins members or superusers. This ceiling holds even when every other
// field of the request is valid.
func CanAssignRoles(s *Subject, granting []Role) bool {
	if s == nil {
		return false
	}
	allowed := IsAdmin(s) || IsSchoolAdmin(s)
	if !allowed {
		return false
	}
	for _, r := range granting {
		if r == RoleAdmins && !IsAdminsGroup(s) {
			return false
		}
	}
	return true
}
