package models

import "time"

// Audit carries the write-once creation fields and last-mutation fields that
// every mutable entity records. The actor references are nullable so records
// survive deletion of the acting user.
type Audit struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
}

// Touch stamps the mutation fields for an update by the given actor.
func (a *Audit) Touch(actorID string, now time.Time) {
	a.UpdatedAt = now
	if actorID != "" {
		a.UpdatedBy = &actorID
	}
}

// Stamp initialises both creation and mutation fields for a new record.
func (a *Audit) Stamp(actorID string, now time.Time) {
	a.CreatedAt = now
	a.UpdatedAt = now
	if actorID != "" {
		a.CreatedBy = &actorID
		a.UpdatedBy = &actorID
	}
}
