package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
)

// StudentRepository manages student demographics and the candidate queries
// behind the duplicate matcher.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentListColumns = `st.id, st.first_name, st.last_name, st.date_of_birth, st.gender,
        st.created_at, st.created_by, st.updated_at, st.updated_by,
        le.school_id AS latest_school_id, ls.code AS latest_school_code, ls.name AS latest_school_name,
        le.school_year_code AS latest_year_code, sy.label AS latest_year_label,
        le.class_level_code AS latest_level_code, cl.label AS latest_level_label`

// studentListBase annotates each student with its latest enrolment's
// school, year and level. "Latest" orders by school-year code first so the
// annotation agrees with the effective-ownership fallback; the scope filter
// then matches the annotated school against the caller's affiliation.
func studentListBase() string {
	return fmt.Sprintf(`FROM students st
        %s
        LEFT JOIN schools ls ON ls.id = le.school_id
        LEFT JOIN school_years sy ON sy.code = le.school_year_code
        LEFT JOIN class_levels cl ON cl.code = le.class_level_code`,
		latestRowJoin("school_enrolments", "student_id", "st", "le", "school_year_code DESC, start_date DESC NULLS LAST"))
}

// List returns student rows visible under the given scope, filtered and
// paginated. Callers must short-circuit an empty scope before calling.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter, scope authz.Scope) ([]models.StudentDetail, int, error) {
	base := studentListBase()
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(st.first_name) LIKE $%d OR LOWER(st.last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("le.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.YearCode != "" {
		conditions = append(conditions, fmt.Sprintf("le.school_year_code = $%d", len(args)+1))
		args = append(args, filter.YearCode)
	}
	if filter.LevelCode != "" {
		conditions = append(conditions, fmt.Sprintf("le.class_level_code = $%d", len(args)+1))
		args = append(args, filter.LevelCode)
	}
	if cond, scoped := scopeCondition(scope, "le.school_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"last_name":     "st.last_name",
		"date_of_birth": "st.date_of_birth",
		"created_at":    "st.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "st.last_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, st.id LIMIT %d OFFSET %d`,
		studentListColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail with its latest-enrolment annotations.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE st.id = $1`, studentListColumns, studentListBase())
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateWithEnrolment inserts a student and its first enrolment in one
// transaction. A uniqueness violation on the enrolment rolls the whole
// creation back, leaving no partial student row behind.
func (r *StudentRepository) CreateWithEnrolment(ctx context.Context, student *models.Student, enrolment *models.SchoolEnrolment) (err error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	enrolment.StudentID = student.ID
	if enrolment.ID == "" {
		enrolment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = student.CreatedAt
	if enrolment.CreatedAt.IsZero() {
		enrolment.CreatedAt = now
	}
	enrolment.UpdatedAt = enrolment.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student creation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertStudent = `INSERT INTO students (id, first_name, last_name, date_of_birth, gender, created_at, created_by, updated_at, updated_by)
        VALUES (:id, :first_name, :last_name, :date_of_birth, :gender, :created_at, :created_by, :updated_at, :updated_by)`
	if _, err = tx.NamedExecContext(ctx, insertStudent, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, insertEnrolmentQuery, enrolment); err != nil {
		if isPgError(err, pgUniqueViolation) {
			err = ErrDuplicateEnrolment
			return err
		}
		return fmt.Errorf("create enrolment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student creation: %w", err)
	}
	return nil
}

// Update modifies student demographics.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name,
        date_of_birth = :date_of_birth, gender = :gender, updated_at = :updated_at, updated_by = :updated_by
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student; enrolments cascade with it.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// Candidates bounds the duplicate-matcher population: optional exact birth
// date, cheap first-letter prefix filters, capped at 200 rows. Scoring
// happens in the service; this query only keeps the set small.
func (r *StudentRepository) Candidates(ctx context.Context, query models.MatchQuery) ([]models.Student, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if query.DateOfBirth != nil {
		conditions = append(conditions, fmt.Sprintf("date_of_birth = $%d", len(args)+1))
		args = append(args, *query.DateOfBirth)
	}
	if letter := firstLetter(query.FirstName); letter != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(first_name) LIKE $%d", len(args)+1))
		args = append(args, letter+"%")
	}
	if letter := firstLetter(query.LastName); letter != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(last_name) LIKE $%d", len(args)+1))
		args = append(args, letter+"%")
	}

	sqlQuery := fmt.Sprintf(`SELECT id, first_name, last_name, date_of_birth, gender,
            created_at, created_by, updated_at, updated_by
        FROM students WHERE %s ORDER BY last_name, first_name, id LIMIT 200`,
		strings.Join(conditions, " AND "))

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("match candidates: %w", err)
	}
	return students, nil
}

// firstLetter returns the lowercased first rune of s, or "" when empty.
func firstLetter(s string) string {
	for _, r := range s {
		return strings.ToLower(string(r))
	}
	return ""
}
