package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pacific-edu/pacemis-api/internal/models"
)

const enrolmentColumns = `e.id, e.student_id, e.school_id, e.school_year_code, e.class_level_code,
        e.start_date, e.end_date, e.created_at, e.created_by, e.updated_at, e.updated_by,
        e.cft1_wears_glasses, e.cft2_difficulty_seeing_with_glasses, e.cft3_difficulty_seeing,
        e.cft4_has_hearing_aids, e.cft5_difficulty_hearing_with_aids, e.cft6_difficulty_hearing,
        e.cft7_uses_walking_equipment, e.cft8_difficulty_walking_without_equipment,
        e.cft9_difficulty_walking_with_equipment, e.cft10_difficulty_walking_compare_to_others,
        e.cft11_difficulty_picking_up_small_objects, e.cft12_difficulty_being_understood,
        e.cft13_difficulty_learning, e.cft14_difficulty_remembering, e.cft15_difficulty_concentrating,
        e.cft16_difficulty_accepting_change, e.cft17_difficulty_controlling_behaviour,
        e.cft18_difficulty_making_friends, e.cft19_anxious_frequency, e.cft20_depressed_frequency`

const insertEnrolmentQuery = `INSERT INTO school_enrolments (id, student_id, school_id, school_year_code, class_level_code,
        start_date, end_date, created_at, created_by, updated_at, updated_by,
        cft1_wears_glasses, cft2_difficulty_seeing_with_glasses, cft3_difficulty_seeing,
        cft4_has_hearing_aids, cft5_difficulty_hearing_with_aids, cft6_difficulty_hearing,
        cft7_uses_walking_equipment, cft8_difficulty_walking_without_equipment,
        cft9_difficulty_walking_with_equipment, cft10_difficulty_walking_compare_to_others,
        cft11_difficulty_picking_up_small_objects, cft12_difficulty_being_understood,
        cft13_difficulty_learning, cft14_difficulty_remembering, cft15_difficulty_concentrating,
        cft16_difficulty_accepting_change, cft17_difficulty_controlling_behaviour,
        cft18_difficulty_making_friends, cft19_anxious_frequency, cft20_depressed_frequency)
    VALUES (:id, :student_id, :school_id, :school_year_code, :class_level_code,
        :start_date, :end_date, :created_at, :created_by, :updated_at, :updated_by,
        :cft1_wears_glasses, :cft2_difficulty_seeing_with_glasses, :cft3_difficulty_seeing,
        :cft4_has_hearing_aids, :cft5_difficulty_hearing_with_aids, :cft6_difficulty_hearing,
        :cft7_uses_walking_equipment, :cft8_difficulty_walking_without_equipment,
        :cft9_difficulty_walking_with_equipment, :cft10_difficulty_walking_compare_to_others,
        :cft11_difficulty_picking_up_small_objects, :cft12_difficulty_being_understood,
        :cft13_difficulty_learning, :cft14_difficulty_remembering, :cft15_difficulty_concentrating,
        :cft16_difficulty_accepting_change, :cft17_difficulty_controlling_behaviour,
        :cft18_difficulty_making_friends, :cft19_anxious_frequency, :cft20_depressed_frequency)`

// EnrolmentRepository manages school enrolments and their questionnaire
// answers.
type EnrolmentRepository struct {
	db *sqlx.DB
}

// NewEnrolmentRepository constructs an EnrolmentRepository.
func NewEnrolmentRepository(db *sqlx.DB) *EnrolmentRepository {
	return &EnrolmentRepository{db: db}
}

// ListByStudent returns a student's full enrolment history, newest year
// first. The order mirrors the effective-ownership tie-break chain so the
// first row of a lapsed student is the owning one.
func (r *EnrolmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrolmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
            s.code AS school_code, s.name AS school_name,
            sy.label AS year_label, cl.label AS level_label
        FROM school_enrolments e
        JOIN schools s ON s.id = e.school_id
        JOIN school_years sy ON sy.code = e.school_year_code
        JOIN class_levels cl ON cl.code = e.class_level_code
        WHERE e.student_id = $1
        ORDER BY e.school_year_code DESC, e.start_date DESC NULLS LAST, e.created_at DESC, e.id DESC`, enrolmentColumns)
	var enrolments []models.EnrolmentDetail
	if err := r.db.SelectContext(ctx, &enrolments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrolments: %w", err)
	}
	return enrolments, nil
}

// RowsByStudent returns the raw enrolment rows for ownership resolution.
func (r *EnrolmentRepository) RowsByStudent(ctx context.Context, studentID string) ([]models.SchoolEnrolment, error) {
	query := fmt.Sprintf(`SELECT %s FROM school_enrolments e WHERE e.student_id = $1`, enrolmentColumns)
	var enrolments []models.SchoolEnrolment
	if err := r.db.SelectContext(ctx, &enrolments, query, studentID); err != nil {
		return nil, fmt.Errorf("load enrolments: %w", err)
	}
	return enrolments, nil
}

// FindByID fetches one enrolment row.
func (r *EnrolmentRepository) FindByID(ctx context.Context, id string) (*models.SchoolEnrolment, error) {
	query := fmt.Sprintf(`SELECT %s FROM school_enrolments e WHERE e.id = $1`, enrolmentColumns)
	var enrolment models.SchoolEnrolment
	if err := r.db.GetContext(ctx, &enrolment, query, id); err != nil {
		return nil, err
	}
	return &enrolment, nil
}

// Create inserts an enrolment. At most one row may exist per (student,
// school, school_year); a violation surfaces as ErrDuplicateEnrolment.
func (r *EnrolmentRepository) Create(ctx context.Context, enrolment *models.SchoolEnrolment) error {
	if enrolment.ID == "" {
		enrolment.ID = uuid.NewString()
	}
	if enrolment.CreatedAt.IsZero() {
		enrolment.CreatedAt = time.Now().UTC()
	}
	enrolment.UpdatedAt = enrolment.CreatedAt
	if _, err := r.db.NamedExecContext(ctx, insertEnrolmentQuery, enrolment); err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrDuplicateEnrolment
		}
		return fmt.Errorf("create enrolment: %w", err)
	}
	return nil
}

// Update modifies an enrolment, questionnaire answers included.
func (r *EnrolmentRepository) Update(ctx context.Context, enrolment *models.SchoolEnrolment) error {
	const query = `UPDATE school_enrolments SET school_id = :school_id, school_year_code = :school_year_code,
        class_level_code = :class_level_code, start_date = :start_date, end_date = :end_date,
        updated_at = :updated_at, updated_by = :updated_by,
        cft1_wears_glasses = :cft1_wears_glasses,
        cft2_difficulty_seeing_with_glasses = :cft2_difficulty_seeing_with_glasses,
        cft3_difficulty_seeing = :cft3_difficulty_seeing,
        cft4_has_hearing_aids = :cft4_has_hearing_aids,
        cft5_difficulty_hearing_with_aids = :cft5_difficulty_hearing_with_aids,
        cft6_difficulty_hearing = :cft6_difficulty_hearing,
        cft7_uses_walking_equipment = :cft7_uses_walking_equipment,
        cft8_difficulty_walking_without_equipment = :cft8_difficulty_walking_without_equipment,
        cft9_difficulty_walking_with_equipment = :cft9_difficulty_walking_with_equipment,
        cft10_difficulty_walking_compare_to_others = :cft10_difficulty_walking_compare_to_others,
        cft11_difficulty_picking_up_small_objects = :cft11_difficulty_picking_up_small_objects,
        cft12_difficulty_being_understood = :cft12_difficulty_being_understood,
        cft13_difficulty_learning = :cft13_difficulty_learning,
        cft14_difficulty_remembering = :cft14_difficulty_remembering,
        cft15_difficulty_concentrating = :cft15_difficulty_concentrating,
        cft16_difficulty_accepting_change = :cft16_difficulty_accepting_change,
        cft17_difficulty_controlling_behaviour = :cft17_difficulty_controlling_behaviour,
        cft18_difficulty_making_friends = :cft18_difficulty_making_friends,
        cft19_anxious_frequency = :cft19_anxious_frequency,
        cft20_depressed_frequency = :cft20_depressed_frequency
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enrolment); err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrDuplicateEnrolment
		}
		return fmt.Errorf("update enrolment: %w", err)
	}
	return nil
}

// Delete removes an enrolment.
func (r *EnrolmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM school_enrolments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrolment: %w", err)
	}
	return nil
}
