package models

// SystemUserProfile is the system-level profile attached one-to-one to a
// User: ministry officials, analysts, external consultants. No school
// affiliation by design; visibility is system-wide.
type SystemUserProfile struct {
	ID            string `db:"id" json:"id"`
	UserID        string `db:"user_id" json:"user_id"`
	Organization  string `db:"organization" json:"organization"`
	PositionTitle string `db:"position_title" json:"position_title"`
	Audit
}

// SystemUserDetail joins the user identity for listing and detail views.
type SystemUserDetail struct {
	SystemUserProfile
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

// SystemUserFilter captures system-user listing criteria.
type SystemUserFilter struct {
	Search       string
	Organization string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
