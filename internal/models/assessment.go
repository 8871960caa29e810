package models

import "time"

// Assessment is one gradable component of an enrollment. Weight is a fraction
// in [0,1]; Mark is nil or zero until the student records a result. The
// assignment name doubles as the cross-student join key together with the
// course id (see RankRepository).
type Assessment struct {
	ID             string     `db:"id" json:"id"`
	EnrollmentID   string     `db:"enrollment_id" json:"enrollment_id"`
	AssignmentName string     `db:"assignment_name" json:"assignment_name"`
	Weight         float64    `db:"weight" json:"weight"`
	Mark           *float64   `db:"mark" json:"mark,omitempty"`
	IsHurdled      bool       `db:"is_hurdled" json:"is_hurdled"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Completed reports whether a mark has been recorded. A zero mark counts as
// not yet completed, matching how newly seeded assessments are stored.
func (a Assessment) Completed() bool {
	return a.Mark != nil && *a.Mark != 0
}

// MarkValue returns the recorded mark or zero when absent.
func (a Assessment) MarkValue() float64 {
	if a.Mark == nil {
		return 0
	}
	return *a.Mark
}
