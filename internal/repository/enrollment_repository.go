package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursemark/coursemark-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments and their
// lifecycle-bound assessments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns a non-deleted enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, created_at, updated_at, deleted_at
        FROM enrollments WHERE id = $1 AND deleted_at IS NULL`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByUser returns the user's non-deleted enrollments with course context.
// Assessments are attached separately by the service layer.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.created_at, e.updated_at, e.deleted_at,
        c.course_code, c.course_name, c.semester, c.year
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.user_id = $1 AND e.deleted_at IS NULL
        ORDER BY e.created_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// CreateWithAssessments inserts the enrollment and its seeded assessments in
// a single transaction so a partially seeded enrollment is never visible.
func (r *EnrollmentRepository) CreateWithAssessments(ctx context.Context, enrollment *models.Enrollment, assessments []models.Assessment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}

	const insertEnrollment = `INSERT INTO enrollments (id, user_id, course_id, created_at, updated_at)
        VALUES (:id, :user_id, :course_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertEnrollment, enrollment); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create enrollment: %w", err)
	}

	const insertAssessment = `INSERT INTO assessments (id, enrollment_id, assignment_name, weight, mark, is_hurdled, created_at, updated_at)
        VALUES (:id, :enrollment_id, :assignment_name, :weight, :mark, :is_hurdled, :created_at, :updated_at)`
	for i := range assessments {
		if assessments[i].ID == "" {
			assessments[i].ID = uuid.NewString()
		}
		assessments[i].EnrollmentID = enrollment.ID
		assessments[i].CreatedAt = now
		assessments[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertAssessment, assessments[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("seed assessment %q: %w", assessments[i].AssignmentName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// SoftDelete stamps the enrollment and all of its active assessments with a
// deletion timestamp in one transaction. Both succeed or neither is visible.
// Returns sql.ErrNoRows when no active enrollment matched.
func (r *EnrollmentRepository) SoftDelete(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	now := time.Now().UTC()

	const deleteEnrollment = `UPDATE enrollments SET deleted_at = $2, updated_at = $2
        WHERE id = $1 AND user_id = $3 AND deleted_at IS NULL`
	result, err := tx.ExecContext(ctx, deleteEnrollment, id, now, userID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete enrollment rows: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}

	const deleteAssessments = `UPDATE assessments SET deleted_at = $2, updated_at = $2
        WHERE enrollment_id = $1 AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, deleteAssessments, id, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete enrollment assessments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}
