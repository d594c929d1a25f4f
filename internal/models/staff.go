package models

import "time"

// StaffType distinguishes teaching from non-teaching staff.
type StaffType string

const (
	TeachingStaff    StaffType = "teaching"
	NonTeachingStaff StaffType = "non_teaching"
)

// StaffProfile is the school-level profile attached one-to-one to a User.
// School links are carried by SchoolAssignment rows, never directly here.
type StaffProfile struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	StaffType StaffType `db:"staff_type" json:"staff_type"`
	Audit
}

// StaffDetail is the listing/detail projection: user identity joined in, plus
// the latest-assignment school annotation the row-level filter runs against.
type StaffDetail struct {
	StaffProfile
	FirstName        string  `db:"first_name" json:"first_name"`
	LastName         string  `db:"last_name" json:"last_name"`
	Email            string  `db:"email" json:"email"`
	LatestSchoolID   *string `db:"latest_school_id" json:"latest_school_id,omitempty"`
	LatestSchoolCode *string `db:"latest_school_code" json:"latest_school_code,omitempty"`
	LatestSchoolName *string `db:"latest_school_name" json:"latest_school_name,omitempty"`
}

// SchoolAssignment links a staff profile to a school with a job title and an
// optional validity window.
type SchoolAssignment struct {
	ID         string     `db:"id" json:"id"`
	StaffID    string     `db:"staff_id" json:"staff_id"`
	SchoolID   string     `db:"school_id" json:"school_id"`
	JobTitleID string     `db:"job_title_id" json:"job_title_id"`
	StartDate  *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate    *time.Time `db:"end_date" json:"end_date,omitempty"`
	Audit
}

// IsOpenEnded reports the assignment's active flag: no end date set. This is
// deliberately NOT a wall-clock check; a future-dated end date already makes
// the assignment inactive for affiliation purposes.
func (a SchoolAssignment) IsOpenEnded() bool {
	return a.EndDate == nil
}

// IsActiveToday is the date-range notion used for display only: the window
// covers the given day, compared at calendar-date granularity. Keep it
// distinct from IsOpenEnded.
func (a SchoolAssignment) IsActiveToday(today time.Time) bool {
	day := startOfDay(today)
	if a.StartDate != nil && a.StartDate.After(day) {
		return false
	}
	return a.EndDate == nil || !a.EndDate.Before(day)
}

// AssignmentDetail joins reference names for display.
type AssignmentDetail struct {
	SchoolAssignment
	SchoolCode   string `db:"school_code" json:"school_code"`
	SchoolName   string `db:"school_name" json:"school_name"`
	JobTitleName string `db:"job_title_name" json:"job_title_name"`
}

// StaffFilter captures staff listing criteria.
type StaffFilter struct {
	Search    string
	Email     string
	SchoolID  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
