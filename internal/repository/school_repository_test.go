package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestSchoolRepositoryListActiveOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolRepository(db)
	rows := sqlmock.NewRows([]string{"id", "code", "name", "active"}).
		AddRow("sch-1", "S001", "North Primary", true)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = true")).WillReturnRows(rows)

	schools, err := repo.ListSchools(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, schools, 1)
	require.Equal(t, "S001", schools[0].Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Deleting a school that assignments or enrolments still point at is
// blocked by the protected foreign key and reported as a typed condition.
func TestSchoolRepositoryDeleteReferenced(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schools")).
		WithArgs("sch-1").
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.DeleteSchool(context.Background(), "sch-1")
	require.ErrorIs(t, err, ErrReferenced)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryReferenceLists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM school_years ORDER BY code DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"code", "label"}).AddRow("2025", "2025").AddRow("2024", "2024"))
	years, err := repo.ListSchoolYears(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2025", years[0].Code)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_levels ORDER BY code")).
		WillReturnRows(sqlmock.NewRows([]string{"code", "label"}).AddRow("g1", "Grade 1"))
	levels, err := repo.ListClassLevels(context.Background())
	require.NoError(t, err)
	require.Len(t, levels, 1)

	mock.ExpectQuery(regexp.QuoteMeta("FROM job_titles ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("jt-1", "Principal"))
	titles, err := repo.ListJobTitles(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Principal", titles[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}
