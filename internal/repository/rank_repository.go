package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/coursemark/coursemark-api/internal/models"
)

// RankRepository exposes the read-only cohort ranking query. The percentile
// is computed by the database in a single PERCENT_RANK window over the
// cohort rather than by sorting rows client-side, so it stays viable as the
// cohort grows.
type RankRepository struct {
	db *sqlx.DB
}

// NewRankRepository instantiates the repository.
func NewRankRepository(db *sqlx.DB) *RankRepository {
	return &RankRepository{db: db}
}

// PercentRank returns the percentile rank of the target assessment's mark
// within its cohort. Cohort identity is (course id, assignment name): the
// catalog template carries no stable per-assessment id, so the name is the
// only cross-student join key. Soft-deleted assessments and enrollments are
// excluded. Returns sql.ErrNoRows when the assessment does not exist or has
// been deleted.
func (r *RankRepository) PercentRank(ctx context.Context, assessmentID string) (*models.AssessmentRank, error) {
	const target = `SELECT a.id, a.assignment_name, e.course_id
        FROM assessments a
        JOIN enrollments e ON e.id = a.enrollment_id
        WHERE a.id = $1 AND a.deleted_at IS NULL AND e.deleted_at IS NULL`
	var rank models.AssessmentRank
	if err := r.db.GetContext(ctx, &rank, target, assessmentID); err != nil {
		return nil, err
	}

	const window = `SELECT cohort_size, rank FROM (
            SELECT a.id,
                   COUNT(*) OVER () AS cohort_size,
                   PERCENT_RANK() OVER (ORDER BY a.mark) AS rank
            FROM assessments a
            JOIN enrollments e ON e.id = a.enrollment_id
            WHERE e.course_id = $1 AND a.assignment_name = $2
              AND a.deleted_at IS NULL AND e.deleted_at IS NULL
        ) ranked WHERE ranked.id = $3`
	row := struct {
		CohortSize int     `db:"cohort_size"`
		Rank       float64 `db:"rank"`
	}{}
	if err := r.db.GetContext(ctx, &row, window, rank.CourseID, rank.AssignmentName, assessmentID); err != nil {
		return nil, err
	}
	rank.AssessmentID = assessmentID
	rank.CohortSize = row.CohortSize
	rank.Rank = row.Rank
	return &rank, nil
}
