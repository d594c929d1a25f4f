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

// StaffRepository manages staff profiles and their school assignments.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs a StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

const staffListColumns = `sp.id, sp.user_id, sp.staff_type, sp.created_at, sp.created_by, sp.updated_at, sp.updated_by,
        u.first_name, u.last_name, u.email,
        la.school_id AS latest_school_id, ls.code AS latest_school_code, ls.name AS latest_school_name`

// staffListBase annotates each staff row with its latest assignment's
// school through the shared lateral-join primitive. The scope condition
// filters on that annotation, never on a per-row application fetch.
func staffListBase() string {
	return fmt.Sprintf(`FROM staff_profiles sp
        JOIN users u ON u.id = sp.user_id
        %s
        LEFT JOIN schools ls ON ls.id = la.school_id`,
		latestRowJoin("school_assignments", "staff_id", "sp", "la", "start_date DESC NULLS LAST"))
}

// List returns staff rows visible under the given scope, filtered and
// paginated. Callers must short-circuit an empty scope before calling.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter, scope authz.Scope) ([]models.StaffDetail, int, error) {
	base := staffListBase()
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.first_name) LIKE $%d OR LOWER(u.last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(u.email) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Email)
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("la.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if cond, scoped := scopeCondition(scope, "la.school_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"last_name":  "u.last_name",
		"email":      "u.email",
		"created_at": "sp.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "u.last_name"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, sp.id LIMIT %d OFFSET %d`,
		staffListColumns, base, column, order, size, offset)

	var staff []models.StaffDetail
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}
	return staff, total, nil
}

// FindByID fetches a staff detail with its latest-school annotation.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.StaffDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE sp.id = $1`, staffListColumns, staffListBase())
	var detail models.StaffDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the staff profile attached to a user, if any.
func (r *StaffRepository) FindByUserID(ctx context.Context, userID string) (*models.StaffProfile, error) {
	const query = `SELECT id, user_id, staff_type, created_at, created_by, updated_at, updated_by
        FROM staff_profiles WHERE user_id = $1`
	var profile models.StaffProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update modifies a staff profile.
func (r *StaffRepository) Update(ctx context.Context, profile *models.StaffProfile) error {
	const query = `UPDATE staff_profiles SET staff_type = :staff_type, updated_at = :updated_at, updated_by = :updated_by WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update staff profile: %w", err)
	}
	return nil
}

// Assignments returns all assignments for a staff profile with reference
// names joined, open ended first, then newest.
func (r *StaffRepository) Assignments(ctx context.Context, staffID string) ([]models.AssignmentDetail, error) {
	const query = `SELECT a.id, a.staff_id, a.school_id, a.job_title_id, a.start_date, a.end_date,
            a.created_at, a.created_by, a.updated_at, a.updated_by,
            s.code AS school_code, s.name AS school_name, jt.name AS job_title_name
        FROM school_assignments a
        JOIN schools s ON s.id = a.school_id
        JOIN job_titles jt ON jt.id = a.job_title_id
        WHERE a.staff_id = $1
        ORDER BY a.end_date NULLS FIRST, a.start_date DESC NULLS LAST, a.created_at DESC`
	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, staffID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// AssignmentRows returns the raw assignment rows for affiliation
// resolution.
func (r *StaffRepository) AssignmentRows(ctx context.Context, staffID string) ([]models.SchoolAssignment, error) {
	const query = `SELECT id, staff_id, school_id, job_title_id, start_date, end_date,
            created_at, created_by, updated_at, updated_by
        FROM school_assignments WHERE staff_id = $1`
	var assignments []models.SchoolAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, staffID); err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	return assignments, nil
}

// FindAssignmentByID fetches one assignment row.
func (r *StaffRepository) FindAssignmentByID(ctx context.Context, id string) (*models.SchoolAssignment, error) {
	const query = `SELECT id, staff_id, school_id, job_title_id, start_date, end_date,
            created_at, created_by, updated_at, updated_by
        FROM school_assignments WHERE id = $1`
	var assignment models.SchoolAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CreateAssignment inserts a school assignment.
func (r *StaffRepository) CreateAssignment(ctx context.Context, assignment *models.SchoolAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	assignment.UpdatedAt = assignment.CreatedAt
	const query = `INSERT INTO school_assignments (id, staff_id, school_id, job_title_id, start_date, end_date, created_at, created_by, updated_at, updated_by)
        VALUES (:id, :staff_id, :school_id, :job_title_id, :start_date, :end_date, :created_at, :created_by, :updated_at, :updated_by)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// UpdateAssignment modifies a school assignment.
func (r *StaffRepository) UpdateAssignment(ctx context.Context, assignment *models.SchoolAssignment) error {
	const query = `UPDATE school_assignments SET school_id = :school_id, job_title_id = :job_title_id,
        start_date = :start_date, end_date = :end_date, updated_at = :updated_at, updated_by = :updated_by
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes a school assignment.
func (r *StaffRepository) DeleteAssignment(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM school_assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
