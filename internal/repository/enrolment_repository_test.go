package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/pacific-edu/pacemis-api/internal/models"
)

func TestEnrolmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrolmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO school_enrolments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrolment := &models.SchoolEnrolment{
		StudentID:      "stu-1",
		SchoolID:       "sch-1",
		SchoolYearCode: "2025",
		ClassLevelCode: "g4",
	}
	require.NoError(t, repo.Create(context.Background(), enrolment))
	require.NotEmpty(t, enrolment.ID)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO school_enrolments")).
		WillReturnError(&pq.Error{Code: "23505"})

	second := &models.SchoolEnrolment{
		StudentID:      "stu-1",
		SchoolID:       "sch-1",
		SchoolYearCode: "2025",
		ClassLevelCode: "g5",
	}
	require.ErrorIs(t, repo.Create(context.Background(), second), ErrDuplicateEnrolment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrolmentRepositoryListByStudentOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrolmentRepository(db)
	now := time.Now()
	columns := []string{
		"id", "student_id", "school_id", "school_year_code", "class_level_code",
		"start_date", "end_date", "created_at", "created_by", "updated_at", "updated_by",
		"cft1_wears_glasses", "cft2_difficulty_seeing_with_glasses", "cft3_difficulty_seeing",
		"cft4_has_hearing_aids", "cft5_difficulty_hearing_with_aids", "cft6_difficulty_hearing",
		"cft7_uses_walking_equipment", "cft8_difficulty_walking_without_equipment",
		"cft9_difficulty_walking_with_equipment", "cft10_difficulty_walking_compare_to_others",
		"cft11_difficulty_picking_up_small_objects", "cft12_difficulty_being_understood",
		"cft13_difficulty_learning", "cft14_difficulty_remembering", "cft15_difficulty_concentrating",
		"cft16_difficulty_accepting_change", "cft17_difficulty_controlling_behaviour",
		"cft18_difficulty_making_friends", "cft19_anxious_frequency", "cft20_depressed_frequency",
		"school_code", "school_name", "year_label", "level_label",
	}
	rows := sqlmock.NewRows(columns).AddRow(
		"enr-1", "stu-1", "sch-1", "2025", "g4",
		nil, nil, now, nil, now, nil,
		models.AnswerYes, models.DifficultySome, nil,
		nil, nil, nil,
		nil, nil,
		nil, nil,
		nil, nil,
		nil, nil, nil,
		nil, nil,
		nil, models.FrequencyWeekly, nil,
		"S001", "North Primary", "2025", "Grade 4",
	)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.school_year_code DESC")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	enrolments, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, enrolments, 1)
	require.NotNil(t, enrolments[0].WearsGlasses)
	require.Equal(t, models.AnswerYes, *enrolments[0].WearsGlasses)
	require.Equal(t, "North Primary", enrolments[0].SchoolName)
	require.NoError(t, mock.ExpectationsWereMet())
}
