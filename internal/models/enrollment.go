package models

import "time"

// Enrollment captures a student's registration in one course offering.
// Deletion is a timestamp, never a physical removal, so other students'
// historical cohort queries stay valid after a withdrawal.
type Enrollment struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	CourseID  string     `db:"course_id" json:"course_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// EnrollmentDetail enriches Enrollment with course info and the student's
// active assessments.
type EnrollmentDetail struct {
	Enrollment
	CourseCode  string       `db:"course_code" json:"course_code"`
	CourseName  string       `db:"course_name" json:"course_name"`
	Semester    string       `db:"semester" json:"semester"`
	Year        int          `db:"year" json:"year"`
	Assessments []Assessment `json:"assessments"`
}

// EnrollmentGrade is the projected overall grade for one enrollment.
// Provisional by construction: ungraded assessments contribute zero, so this
// is a "grade so far", not a final grade.
type EnrollmentGrade struct {
	EnrollmentID string  `json:"enrollment_id"`
	OverallGrade float64 `json:"overall_grade"`
	Completed    int     `json:"completed_assessments"`
	Total        int     `json:"total_assessments"`
}

// RequiredMarkResult reports the mark needed on the single remaining
// assessment to reach the target grade. Values below 0 mean the target is
// already met; values above 100 mean it is unreachable.
type RequiredMarkResult struct {
	EnrollmentID string  `json:"enrollment_id"`
	TargetGrade  float64 `json:"target_grade"`
	RequiredMark float64 `json:"required_mark"`
}
