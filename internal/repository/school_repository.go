package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pacific-edu/pacemis-api/internal/models"
)

// Postgres error codes surfaced as typed conditions.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isPgError reports whether err is a Postgres error with the given code.
func isPgError(err error, code string) bool {
	if pgErr, ok := err.(*pq.Error); ok {
		return string(pgErr.Code) == code
	}
	return false
}

// SchoolRepository serves the school table and the warehouse reference data
// (school years, class levels, job titles).
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// ListSchools returns schools ordered by code, optionally active only.
func (r *SchoolRepository) ListSchools(ctx context.Context, activeOnly bool) ([]models.School, error) {
	query := `SELECT id, code, name, active FROM schools`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY code`
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// FindSchoolByID fetches one school.
func (r *SchoolRepository) FindSchoolByID(ctx context.Context, id string) (*models.School, error) {
	var school models.School
	if err := r.db.GetContext(ctx, &school, `SELECT id, code, name, active FROM schools WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// DeleteSchool removes a school. Assignments and enrolments reference
// schools with protected foreign keys, so a referenced school cannot be
// deleted; the violation surfaces as ErrReferenced.
func (r *SchoolRepository) DeleteSchool(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id); err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return ErrReferenced
		}
		return fmt.Errorf("delete school: %w", err)
	}
	return nil
}

// ListSchoolYears returns school years newest first; codes sort
// chronologically.
func (r *SchoolRepository) ListSchoolYears(ctx context.Context) ([]models.SchoolYear, error) {
	var years []models.SchoolYear
	if err := r.db.SelectContext(ctx, &years, `SELECT code, label FROM school_years ORDER BY code DESC`); err != nil {
		return nil, fmt.Errorf("list school years: %w", err)
	}
	return years, nil
}

// ListClassLevels returns class levels in code order.
func (r *SchoolRepository) ListClassLevels(ctx context.Context) ([]models.ClassLevel, error) {
	var levels []models.ClassLevel
	if err := r.db.SelectContext(ctx, &levels, `SELECT code, label FROM class_levels ORDER BY code`); err != nil {
		return nil, fmt.Errorf("list class levels: %w", err)
	}
	return levels, nil
}

// ListJobTitles returns job titles in name order.
func (r *SchoolRepository) ListJobTitles(ctx context.Context) ([]models.JobTitle, error) {
	var titles []models.JobTitle
	if err := r.db.SelectContext(ctx, &titles, `SELECT id, name FROM job_titles ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list job titles: %w", err)
	}
	return titles, nil
}
