package models

import "time"

// Gender codes for students.
const (
	GenderMale   = 1
	GenderFemale = 2
)

// Answer code ranges for the child-functioning questionnaire: yes/no items
// use 1-2, difficulty items 1-4, emotional frequency items 1-5. All answers
// are nullable.
const (
	AnswerYes = 1
	AnswerNo  = 2

	DifficultyNone   = 1
	DifficultySome   = 2
	DifficultyALot   = 3
	DifficultyCannot = 4

	FrequencyDaily   = 1
	FrequencyWeekly  = 2
	FrequencyMonthly = 3
	FrequencyYearly  = 4
	FrequencyNever   = 5
)

// Student is the demographic record. It carries no direct school reference;
// school ownership is derived from enrolments.
type Student struct {
	ID          string    `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      *int      `db:"gender" json:"gender,omitempty"`
	Audit
}

// StudentDetail is the listing projection annotated with the latest-enrolment
// school/year/level. The row-level filter matches LatestSchoolID, so the
// annotation must be produced by the repository, not recomputed per row in
// application code.
type StudentDetail struct {
	Student
	LatestSchoolID   *string `db:"latest_school_id" json:"latest_school_id,omitempty"`
	LatestSchoolCode *string `db:"latest_school_code" json:"latest_school_code,omitempty"`
	LatestSchoolName *string `db:"latest_school_name" json:"latest_school_name,omitempty"`
	LatestYearCode   *string `db:"latest_year_code" json:"latest_year_code,omitempty"`
	LatestYearLabel  *string `db:"latest_year_label" json:"latest_year_label,omitempty"`
	LatestLevelCode  *string `db:"latest_level_code" json:"latest_level_code,omitempty"`
	LatestLevelLabel *string `db:"latest_level_label" json:"latest_level_label,omitempty"`
}

// FunctioningAnswers holds the 20 child-functioning questionnaire responses
// recorded per enrolment (they can vary by year and school).
type FunctioningAnswers struct {
	WearsGlasses            *int `db:"cft1_wears_glasses" json:"cft1_wears_glasses,omitempty" validate:"omitempty,min=1,max=2"`
	SeeingWithGlasses       *int `db:"cft2_difficulty_seeing_with_glasses" json:"cft2_difficulty_seeing_with_glasses,omitempty" validate:"omitempty,min=1,max=4"`
	Seeing                  *int `db:"cft3_difficulty_seeing" json:"cft3_difficulty_seeing,omitempty" validate:"omitempty,min=1,max=4"`
	HasHearingAids          *int `db:"cft4_has_hearing_aids" json:"cft4_has_hearing_aids,omitempty" validate:"omitempty,min=1,max=2"`
	HearingWithAids         *int `db:"cft5_difficulty_hearing_with_aids" json:"cft5_difficulty_hearing_with_aids,omitempty" validate:"omitempty,min=1,max=4"`
	Hearing                 *int `db:"cft6_difficulty_hearing" json:"cft6_difficulty_hearing,omitempty" validate:"omitempty,min=1,max=4"`
	UsesWalkingEquipment    *int `db:"cft7_uses_walking_equipment" json:"cft7_uses_walking_equipment,omitempty" validate:"omitempty,min=1,max=2"`
	WalkingWithoutEquipment *int `db:"cft8_difficulty_walking_without_equipment" json:"cft8_difficulty_walking_without_equipment,omitempty" validate:"omitempty,min=1,max=4"`
	WalkingWithEquipment    *int `db:"cft9_difficulty_walking_with_equipment" json:"cft9_difficulty_walking_with_equipment,omitempty" validate:"omitempty,min=1,max=4"`
	WalkingComparedToOthers *int `db:"cft10_difficulty_walking_compare_to_others" json:"cft10_difficulty_walking_compare_to_others,omitempty" validate:"omitempty,min=1,max=4"`
	PickingUpSmallObjects   *int `db:"cft11_difficulty_picking_up_small_objects" json:"cft11_difficulty_picking_up_small_objects,omitempty" validate:"omitempty,min=1,max=4"`
	BeingUnderstood         *int `db:"cft12_difficulty_being_understood" json:"cft12_difficulty_being_understood,omitempty" validate:"omitempty,min=1,max=4"`
	Learning                *int `db:"cft13_difficulty_learning" json:"cft13_difficulty_learning,omitempty" validate:"omitempty,min=1,max=4"`
	Remembering             *int `db:"cft14_difficulty_remembering" json:"cft14_difficulty_remembering,omitempty" validate:"omitempty,min=1,max=4"`
	Concentrating           *int `db:"cft15_difficulty_concentrating" json:"cft15_difficulty_concentrating,omitempty" validate:"omitempty,min=1,max=4"`
	AcceptingChange         *int `db:"cft16_difficulty_accepting_change" json:"cft16_difficulty_accepting_change,omitempty" validate:"omitempty,min=1,max=4"`
	ControllingBehaviour    *int `db:"cft17_difficulty_controlling_behaviour" json:"cft17_difficulty_controlling_behaviour,omitempty" validate:"omitempty,min=1,max=4"`
	MakingFriends           *int `db:"cft18_difficulty_making_friends" json:"cft18_difficulty_making_friends,omitempty" validate:"omitempty,min=1,max=4"`
	AnxiousFrequency        *int `db:"cft19_anxious_frequency" json:"cft19_anxious_frequency,omitempty" validate:"omitempty,min=1,max=5"`
	DepressedFrequency      *int `db:"cft20_depressed_frequency" json:"cft20_depressed_frequency,omitempty" validate:"omitempty,min=1,max=5"`
}

// SchoolEnrolment ties a student to a school, school year and class level.
// At most one row may exist per (student, school, school_year).
type SchoolEnrolment struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	SchoolID       string     `db:"school_id" json:"school_id"`
	SchoolYearCode string     `db:"school_year_code" json:"school_year_code"`
	ClassLevelCode string     `db:"class_level_code" json:"class_level_code"`
	StartDate      *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate        *time.Time `db:"end_date" json:"end_date,omitempty"`
	FunctioningAnswers
	Audit
}

// IsOpenEnded reports whether no end date is set.
func (e SchoolEnrolment) IsOpenEnded() bool {
	return e.EndDate == nil
}

// IsActiveToday reports the enrolment's date-range active notion: no end
// date, or an end date on or after the given day. The comparison runs at
// calendar-date granularity, so a wall-clock instant never lapses an
// enrolment that ends today. Unlike assignments, this IS the access-control
// notion for enrolments.
func (e SchoolEnrolment) IsActiveToday(today time.Time) bool {
	return e.EndDate == nil || !e.EndDate.Before(startOfDay(today))
}

// startOfDay truncates an instant to its UTC calendar date. End and start
// dates are stored as dates; windows are compared date to date.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EnrolmentDetail joins reference labels for display.
type EnrolmentDetail struct {
	SchoolEnrolment
	SchoolCode string `db:"school_code" json:"school_code"`
	SchoolName string `db:"school_name" json:"school_name"`
	YearLabel  string `db:"year_label" json:"year_label"`
	LevelLabel string `db:"level_label" json:"level_label"`
}

// StudentFilter captures student listing criteria. School/year/level filters
// apply to the latest-enrolment annotations only.
type StudentFilter struct {
	Search    string
	SchoolID  string
	YearCode  string
	LevelCode string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// MatchQuery is the advisory duplicate-check input.
type MatchQuery struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
}

// MatchCandidate is a scored potential duplicate.
type MatchCandidate struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Similarity  float64   `json:"similarity"`
}
