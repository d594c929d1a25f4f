package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "date_of_birth", "gender",
		"created_at", "created_by", "updated_at", "updated_by",
		"latest_school_id", "latest_school_code", "latest_school_name",
		"latest_year_code", "latest_year_label", "latest_level_code", "latest_level_label",
	})
}

func TestStudentRepositoryListScopedToSchools(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	now := time.Now()
	rows := studentRows().
		AddRow("stu-1", "John", "Smith", now.AddDate(-10, 0, 0), nil, now, nil, now, nil,
			"sch-1", "S001", "North Primary", "2025", "2025", "g4", "Grade 4")

	scope := authz.Scope{Kind: authz.ScopeSchools, SchoolIDs: []string{"sch-1", "sch-2"}}

	mock.ExpectQuery(regexp.QuoteMeta("le.school_id = ANY($1)")).
		WithArgs(pq.Array([]string{"sch-1", "sch-2"})).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(pq.Array([]string{"sch-1", "sch-2"})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{}, scope)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, students, 1)
	require.Equal(t, "stu-1", students[0].ID)
	require.NotNil(t, students[0].LatestSchoolID)
	require.Equal(t, "sch-1", *students[0].LatestSchoolID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListUnrestrictedAddsNoScopeArg(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery("SELECT st.id, st.first_name").WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.StudentFilter{}, authz.Scope{Kind: authz.ScopeUnrestricted})
	require.NoError(t, err)
	require.Equal(t, 0, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWithEnrolment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO school_enrolments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	student := &models.Student{FirstName: "John", LastName: "Smith", DateOfBirth: time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)}
	enrolment := &models.SchoolEnrolment{SchoolID: "sch-1", SchoolYearCode: "2025", ClassLevelCode: "g4"}

	require.NoError(t, repo.CreateWithEnrolment(context.Background(), student, enrolment))
	require.NotEmpty(t, student.ID)
	require.Equal(t, student.ID, enrolment.StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A duplicate (student, school, school_year) on the enrolment insert must
// roll back the whole creation so no student row survives without its first
// enrolment.
func TestStudentRepositoryCreateRollsBackOnDuplicateEnrolment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO school_enrolments")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	student := &models.Student{FirstName: "John", LastName: "Smith", DateOfBirth: time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)}
	enrolment := &models.SchoolEnrolment{SchoolID: "sch-1", SchoolYearCode: "2025", ClassLevelCode: "g4"}

	err := repo.CreateWithEnrolment(context.Background(), student, enrolment)
	require.ErrorIs(t, err, ErrDuplicateEnrolment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCandidatesPrefilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	dob := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "date_of_birth", "gender",
		"created_at", "created_by", "updated_at", "updated_by",
	}).AddRow("stu-1", "John", "Smith", dob, nil, time.Now(), nil, time.Now(), nil)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 200")).
		WithArgs(dob, "j%", "s%").
		WillReturnRows(rows)

	students, err := repo.Candidates(context.Background(), models.MatchQuery{
		FirstName:   "Jon",
		LastName:    "Smith",
		DateOfBirth: &dob,
	})
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
