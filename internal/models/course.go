package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CourseAssessment is one entry of a course's assessment template. The weight
// is kept as the percentage string published in the catalog (e.g. "30%") and
// only converted to a fraction when an enrollment copies the template.
type CourseAssessment struct {
	Title              string `json:"title"`
	Weight             string `json:"weight"`
	Category           string `json:"category,omitempty"`
	DueDate            string `json:"due_date,omitempty"`
	TaskDescription    string `json:"task_description,omitempty"`
	HurdleRequirements string `json:"hurdle_requirements,omitempty"`
	IsHurdled          bool   `json:"is_hurdled,omitempty"`
}

// CourseAssessments stores the template list as a JSONB column.
type CourseAssessments []CourseAssessment

// Value implements driver.Valuer for JSONB storage.
func (a CourseAssessments) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (a *CourseAssessments) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("course assessments: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// Course is a catalog definition, not student-specific. Its template
// assessments seed each new enrollment's personal assessment rows.
type Course struct {
	ID           string            `db:"id" json:"id"`
	UniversityID string            `db:"university_id" json:"university_id"`
	CourseCode   string            `db:"course_code" json:"course_code"`
	CourseName   string            `db:"course_name" json:"course_name"`
	Semester     string            `db:"semester" json:"semester"`
	Year         int               `db:"year" json:"year"`
	Credit       int               `db:"credit" json:"credit"`
	Description  *string           `db:"description" json:"description,omitempty"`
	Assessments  CourseAssessments `db:"assessments" json:"assessments,omitempty"`
	CreatedBy    string            `db:"created_by" json:"created_by"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// CourseSummary is the lightweight shape returned by catalog listings and
// autocomplete.
type CourseSummary struct {
	ID         string `db:"id" json:"id"`
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}

// CourseFilter scopes catalog lookups.
type CourseFilter struct {
	UniversityID string
	CourseCode   string
	Semester     string
	Year         int
}
