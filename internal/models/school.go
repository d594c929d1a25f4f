package models

// School is the unit of row-level scoping. Code is the stable external
// identifier; assignments and enrolments reference schools with protected
// (non-cascading) foreign keys.
type School struct {
	ID     string `db:"id" json:"id"`
	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// SchoolYear is warehouse reference data; Code sorts chronologically.
type SchoolYear struct {
	Code  string `db:"code" json:"code"`
	Label string `db:"label" json:"label"`
}

// ClassLevel is grade-level reference data.
type ClassLevel struct {
	Code  string `db:"code" json:"code"`
	Label string `db:"label" json:"label"`
}

// JobTitle is the role a staff member holds at a school.
type JobTitle struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
