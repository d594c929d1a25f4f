package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pacific-edu/pacemis-api/internal/models"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

func enrolment(id, schoolID, yearCode string, start, end *time.Time, createdAt time.Time) models.SchoolEnrolment {
	e := models.SchoolEnrolment{
		ID:             id,
		StudentID:      "stu",
		SchoolID:       schoolID,
		SchoolYearCode: yearCode,
		ClassLevelCode: "g1",
		StartDate:      start,
		EndDate:        end,
	}
	e.CreatedAt = createdAt
	return e
}

func TestEffectiveSchoolsCurrentEnrolments(t *testing.T) {
	today := day(2025, 9, 1)
	enrolments := []models.SchoolEnrolment{
		enrolment("e1", "s1", "2025", nil, nil, day(2025, 1, 1)),
		enrolment("e2", "s2", "2025", nil, datePtr(day(2025, 12, 31)), day(2025, 2, 1)),
		enrolment("e3", "s3", "2024", nil, datePtr(day(2025, 6, 30)), day(2024, 1, 1)),
	}

	// Open-ended and future-ending enrolments both count; the lapsed one at
	// s3 does not. A currently enrolled student can be owned by several
	// schools at once.
	got := EffectiveSchools(enrolments, today)
	assert.ElementsMatch(t, []string{"s1", "s2"}, got.IDs())
}

// An enrolment ending today counts as current for the whole day, even when
// the resolver is handed a mid-day wall-clock instant. Without that, the
// student would fall through to the latest-enrolment fallback and ownership
// would flip to another school a day early.
func TestEffectiveSchoolsEndDateOnTodayStillCounts(t *testing.T) {
	now := day(2025, 9, 1).Add(14*time.Hour + 30*time.Minute)
	enrolments := []models.SchoolEnrolment{
		enrolment("e1", "s1", "2025", nil, datePtr(day(2025, 9, 1)), day(2025, 1, 1)),
		enrolment("e2", "s2", "2026", nil, datePtr(day(2024, 6, 30)), day(2024, 1, 1)),
	}
	assert.Equal(t, []string{"s1"}, EffectiveSchools(enrolments, now).IDs())
}

// With no current enrolment the student is owned by exactly one school,
// picked by highest school-year code, then latest start date, then creation
// order. The many-schools/one-school asymmetry is deliberate.
func TestEffectiveSchoolsFallbackTieBreaks(t *testing.T) {
	today := day(2026, 1, 1)
	ended := datePtr(day(2025, 6, 30))

	enrolments := []models.SchoolEnrolment{
		enrolment("e1", "s1", "2024", datePtr(day(2024, 2, 1)), ended, day(2024, 2, 1)),
		enrolment("e2", "s2", "2025", datePtr(day(2025, 1, 1)), ended, day(2025, 1, 1)),
		enrolment("e3", "s3", "2025", datePtr(day(2025, 3, 1)), ended, day(2025, 3, 1)),
	}
	// Year wins first, then start date within the year.
	assert.Equal(t, []string{"s3"}, EffectiveSchools(enrolments, today).IDs())

	// Same year and start date: creation time breaks the tie.
	enrolments = []models.SchoolEnrolment{
		enrolment("e4", "s4", "2025", datePtr(day(2025, 3, 1)), ended, day(2025, 3, 1)),
		enrolment("e5", "s5", "2025", datePtr(day(2025, 3, 1)), ended, day(2025, 3, 2)),
	}
	assert.Equal(t, []string{"s5"}, EffectiveSchools(enrolments, today).IDs())

	// Same creation instant too: the higher ID wins.
	enrolments = []models.SchoolEnrolment{
		enrolment("a", "s6", "2025", datePtr(day(2025, 3, 1)), ended, day(2025, 3, 1)),
		enrolment("b", "s7", "2025", datePtr(day(2025, 3, 1)), ended, day(2025, 3, 1)),
	}
	assert.Equal(t, []string{"s7"}, EffectiveSchools(enrolments, today).IDs())
}

func TestEffectiveSchoolsNilStartDateSortsEarliest(t *testing.T) {
	today := day(2026, 1, 1)
	ended := datePtr(day(2025, 6, 30))

	enrolments := []models.SchoolEnrolment{
		enrolment("e1", "s1", "2025", nil, ended, day(2025, 1, 1)),
		enrolment("e2", "s2", "2025", datePtr(day(2025, 1, 1)), ended, day(2025, 1, 1)),
	}
	assert.Equal(t, []string{"s2"}, EffectiveSchools(enrolments, today).IDs())
}

func TestEffectiveSchoolsNoEnrolments(t *testing.T) {
	assert.Empty(t, EffectiveSchools(nil, day(2025, 9, 1)))
	assert.Empty(t, EffectiveSchools([]models.SchoolEnrolment{}, day(2025, 9, 1)))
}
