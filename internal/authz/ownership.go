package authz

import (
	"time"

	"github.com/pacific-edu/pacemis-api/internal/models"
)

// EffectiveSchools resolves which school(s) own a student for access
// purposes, given their full enrolment history:
//
//  1. If any enrolment is active today (no end date, or end date on or
//     after today), return the distinct schools of all such enrolments.
//  2. Otherwise return the school of the single latest enrolment, ordered
//     by school-year code, then start date, then creation time, then ID.
//  3. A student with no enrolments is owned by nobody.
//
// The asymmetry is policy, not accident: a currently enrolled student may
// be owned by several schools at once, a lapsed one by exactly the school
// that saw them last.
func EffectiveSchools(enrolments []models.SchoolEnrolment, today time.Time) SchoolSet {
	if len(enrolments) == 0 {
		return SchoolSet{}
	}

	current := make(SchoolSet)
	for _, e := range enrolments {
		if e.IsActiveToday(today) {
			current[e.SchoolID] = struct{}{}
		}
	}
	if len(current) > 0 {
		return current
	}

	latest := enrolments[0]
	for _, e := range enrolments[1:] {
		if enrolmentLess(latest, e) {
			latest = e
		}
	}
	return NewSchoolSet(latest.SchoolID)
}

// enrolmentLess orders a strictly before b under the latest-enrolment
// tie-break chain. Nil start dates sort earliest.
func enrolmentLess(a, b models.SchoolEnrolment) bool {
	if a.SchoolYearCode != b.SchoolYearCode {
		return a.SchoolYearCode < b.SchoolYearCode
	}
	as, bs := startOrZero(a.StartDate), startOrZero(b.StartDate)
	if !as.Equal(bs) {
		return as.Before(bs)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func startOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
