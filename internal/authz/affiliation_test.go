package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pacific-edu/pacemis-api/internal/models"
)

func assignment(id, schoolID string, end *time.Time) models.SchoolAssignment {
	return models.SchoolAssignment{
		ID:         id,
		StaffID:    "st1",
		SchoolID:   schoolID,
		JobTitleID: "jt1",
		EndDate:    end,
	}
}

func TestActiveSchoolsUsesOpenEndedOnly(t *testing.T) {
	future := datePtr(time.Now().AddDate(1, 0, 0))
	past := datePtr(day(2020, 1, 1))

	assignments := []models.SchoolAssignment{
		assignment("a1", "s1", nil),
		assignment("a2", "s2", past),
		// A future-dated end already removes the school from the
		// affiliation; the flag is the null check, not a date-range check.
		assignment("a3", "s3", future),
		assignment("a4", "s1", nil),
	}

	got := ActiveSchools(assignments)
	assert.Equal(t, []string{"s1"}, got.IDs())
}

func TestActiveSchoolsEmptyInput(t *testing.T) {
	assert.Empty(t, ActiveSchools(nil))
	assert.Empty(t, ActiveSchools([]models.SchoolAssignment{}))
}

// The two active notions must stay distinct: the affiliation flag ignores
// dates entirely while the display notion covers the given day.
func TestAssignmentActiveNotionsDiverge(t *testing.T) {
	today := day(2025, 9, 1)
	future := datePtr(day(2026, 9, 1))

	a := assignment("a1", "s1", future)
	assert.False(t, a.IsOpenEnded())
	assert.True(t, a.IsActiveToday(today))

	b := assignment("a2", "s1", nil)
	b.StartDate = datePtr(day(2026, 1, 1))
	assert.True(t, b.IsOpenEnded())
	assert.False(t, b.IsActiveToday(today))
}

func TestSchoolSetIntersects(t *testing.T) {
	a := NewSchoolSet("s1", "s2")
	assert.True(t, a.Intersects(NewSchoolSet("s2", "s9")))
	assert.False(t, a.Intersects(NewSchoolSet("s3")))
	assert.False(t, a.Intersects(NewSchoolSet()))
	assert.False(t, NewSchoolSet().Intersects(a))
}
