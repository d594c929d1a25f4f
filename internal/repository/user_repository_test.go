package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/pacific-edu/pacemis-api/internal/authz"
)

func TestUserRepositoryGroupsOf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"name"}).AddRow("School Admins").AddRow("Teachers")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT g.name FROM groups g")).
		WithArgs("user-1").
		WillReturnRows(rows)

	groups, err := repo.GroupsOf(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"School Admins", "Teachers"}, groups)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryProfileKind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	for raw, want := range map[string]authz.ProfileKind{
		"staff":  authz.ProfileStaff,
		"system": authz.ProfileSystemUser,
		"none":   authz.ProfileNone,
	} {
		mock.ExpectQuery("SELECT CASE").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"case"}).AddRow(raw))

		kind, err := repo.ProfileKind(context.Background(), "user-1")
		require.NoError(t, err)
		require.Equal(t, want, kind)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUserSchoolsFiltersOpenEnded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("a.end_date IS NULL")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"school_id"}).AddRow("sch-1").AddRow("sch-2"))

	schools, err := repo.UserSchools(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"sch-1", "sch-2"}, schools)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Group reassignment clears and re-inserts in one transaction; a failed
// insert rolls the delete back too.
func TestUserRepositoryReplaceGroupsAtomic(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_groups")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_groups")).
		WithArgs("user-1", pq.Array([]string{"Teachers"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceGroups(context.Background(), "user-1", []string{"Teachers"}))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_groups")).
		WithArgs("user-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_groups")).
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	require.Error(t, repo.ReplaceGroups(context.Background(), "user-2", []string{"Ghost Group"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryPendingUsers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name",
		"superuser", "active", "last_login", "created_at", "updated_at",
	}).AddRow("user-9", "new@school.edu", "x", "New", "Person", false, true, nil, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("NOT EXISTS (SELECT 1 FROM staff_profiles")).
		WillReturnRows(rows)

	users, err := repo.PendingUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "new@school.edu", users[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}
