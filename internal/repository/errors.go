package repository

import "errors"

// Sentinel conditions raised at the transaction boundary. Services convert
// them to user-facing validation messages.
var (
	// ErrDuplicateEnrolment marks a (student, school, school_year)
	// uniqueness violation.
	ErrDuplicateEnrolment = errors.New("enrolment already exists for this student, school and school year")

	// ErrReferenced marks a delete blocked by a protected foreign key.
	ErrReferenced = errors.New("record is referenced by other rows")
)
