package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssessmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "assignment_name", "weight", "mark", "is_hurdled", "created_at", "updated_at", "deleted_at"}).
		AddRow("asm-1", "enr-1", "Final Exam", 0.5, 72.0, false, time.Now(), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, enrollment_id, assignment_name, weight, mark, is_hurdled, created_at, updated_at, deleted_at FROM assessments WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("asm-1").
		WillReturnRows(rows)

	assessment, err := repo.FindByID(context.Background(), "asm-1")
	require.NoError(t, err)
	require.Equal(t, "Final Exam", assessment.AssignmentName)
	require.NotNil(t, assessment.Mark)
	require.InDelta(t, 72.0, *assessment.Mark, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryUpdateMarkNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assessments SET mark = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("missing", 80.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateMark(context.Background(), "missing", 80.0)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryUpdateWeightLocksAndCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT enrollment_id FROM assessments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("asm-1").
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id"}).AddRow("enr-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT weight FROM assessments WHERE enrollment_id = $1 AND deleted_at IS NULL AND id <> $2 FOR UPDATE")).
		WithArgs("enr-1", "asm-1").
		WillReturnRows(sqlmock.NewRows([]string{"weight"}).AddRow(0.3).AddRow(0.2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assessments SET weight = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("asm-1", 0.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateWeight(context.Background(), "asm-1", 0.5)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryUpdateWeightRejectsOverBudget(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT enrollment_id FROM assessments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("asm-1").
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id"}).AddRow("enr-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT weight FROM assessments WHERE enrollment_id = $1 AND deleted_at IS NULL AND id <> $2 FOR UPDATE")).
		WithArgs("enr-1", "asm-1").
		WillReturnRows(sqlmock.NewRows([]string{"weight"}).AddRow(0.6).AddRow(0.3))
	mock.ExpectRollback()

	err := repo.UpdateWeight(context.Background(), "asm-1", 0.2)
	require.ErrorIs(t, err, appErrors.ErrWeightExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assessments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("asm-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "asm-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
