package models

// RankUnavailable is returned when the cohort has fewer than two members and
// a percentile rank is undefined. Callers must treat it as "no ranking
// available", never as the bottom of the cohort.
const RankUnavailable float64 = -1

// AssessmentRank is the percentile rank of one assessment mark within its
// course cohort. Rank is in [0,1] (PERCENT_RANK semantics: 0 for the lowest
// mark, 1 for the highest) or RankUnavailable.
type AssessmentRank struct {
	AssessmentID   string  `db:"id" json:"assessment_id"`
	AssignmentName string  `db:"assignment_name" json:"assignment_name"`
	CourseID       string  `db:"course_id" json:"course_id"`
	CohortSize     int     `db:"cohort_size" json:"cohort_size"`
	Rank           float64 `db:"rank" json:"rank"`
}
