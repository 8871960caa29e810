package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursemark/coursemark-api/internal/grading"
	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

// AssessmentRepository handles persistence of per-student assessments. Weight
// mutations are serialized here: validation and write share one transaction
// with the sibling rows locked, so two concurrent updates on the same
// enrollment cannot both pass validation against a stale total.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = `id, enrollment_id, assignment_name, weight, mark, is_hurdled, created_at, updated_at, deleted_at`

// FindByID returns a non-deleted assessment.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE id = $1 AND deleted_at IS NULL`, assessmentColumns)
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ListByEnrollment returns the enrollment's active assessments.
func (r *AssessmentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments
        WHERE enrollment_id = $1 AND deleted_at IS NULL ORDER BY created_at`, assessmentColumns)
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// CreateValidated inserts new assessments for an enrollment after checking
// the weight invariant against the locked set of existing rows.
func (r *AssessmentRepository) CreateValidated(ctx context.Context, enrollmentID string, assessments []models.Assessment) error {
	if len(assessments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}

	existing, err := lockEnrollmentWeights(ctx, tx, enrollmentID, "")
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	incoming := make([]float64, 0, len(assessments))
	for _, a := range assessments {
		incoming = append(incoming, a.Weight)
	}
	if !grading.ValidateWeights(existing, incoming) {
		tx.Rollback() //nolint:errcheck
		return appErrors.ErrWeightExceeded
	}

	now := time.Now().UTC()
	const query = `INSERT INTO assessments (id, enrollment_id, assignment_name, weight, mark, is_hurdled, created_at, updated_at)
        VALUES (:id, :enrollment_id, :assignment_name, :weight, :mark, :is_hurdled, :created_at, :updated_at)`
	for i := range assessments {
		if assessments[i].ID == "" {
			assessments[i].ID = uuid.NewString()
		}
		assessments[i].EnrollmentID = enrollmentID
		assessments[i].CreatedAt = now
		assessments[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, assessments[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("create assessment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create: %w", err)
	}
	return nil
}

// UpdateMark records a mark for an assessment.
func (r *AssessmentRepository) UpdateMark(ctx context.Context, id string, mark float64) error {
	const query = `UPDATE assessments SET mark = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, mark, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update mark: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update mark rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateWeight changes an assessment's weight. The target's siblings are
// locked for the duration of the transaction; the invariant check and the
// write are atomic.
func (r *AssessmentRepository) UpdateWeight(ctx context.Context, id string, weight float64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin weight tx: %w", err)
	}

	var enrollmentID string
	const findTarget = `SELECT enrollment_id FROM assessments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	if err := tx.GetContext(ctx, &enrollmentID, findTarget, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	existing, err := lockEnrollmentWeights(ctx, tx, enrollmentID, id)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if !grading.ValidateWeights(existing, []float64{weight}) {
		tx.Rollback() //nolint:errcheck
		return appErrors.ErrWeightExceeded
	}

	const update = `UPDATE assessments SET weight = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, id, weight, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update weight: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit weight: %w", err)
	}
	return nil
}

// SoftDelete stamps an assessment as deleted.
func (r *AssessmentRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE assessments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assessment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// lockEnrollmentWeights locks the enrollment's active assessment rows and
// returns their weights, optionally excluding one assessment. Aggregating in
// Go keeps FOR UPDATE legal on the row query.
func lockEnrollmentWeights(ctx context.Context, tx *sqlx.Tx, enrollmentID, excludeID string) ([]float64, error) {
	query := `SELECT weight FROM assessments WHERE enrollment_id = $1 AND deleted_at IS NULL`
	args := []interface{}{enrollmentID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	query += " FOR UPDATE"

	var weights []float64
	if err := tx.SelectContext(ctx, &weights, query, args...); err != nil {
		return nil, fmt.Errorf("lock enrollment weights: %w", err)
	}
	return weights, nil
}
