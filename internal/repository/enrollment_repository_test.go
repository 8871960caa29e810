package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/coursemark/coursemark-api/internal/models"
)

func TestEnrollmentRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "created_at", "updated_at", "deleted_at", "course_code", "course_name", "semester", "year"}).
		AddRow("enr-1", "user-1", "course-1", time.Now(), time.Now(), nil, "COMP1511", "Programming Fundamentals", "T1", 2026)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN courses c ON c.id = e.course_id")).
		WithArgs("user-1").
		WillReturnRows(rows)

	enrollments, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, "COMP1511", enrollments[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySoftDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET deleted_at = $2, updated_at = $2")).
		WithArgs("enr-1", sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assessments SET deleted_at = $2, updated_at = $2")).
		WithArgs("enr-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.SoftDelete(context.Background(), "enr-1", "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySoftDeleteMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET deleted_at = $2, updated_at = $2")).
		WithArgs("enr-gone", sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SoftDelete(context.Background(), "enr-gone", "user-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithAssessmentsIsAtomic(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assessments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assessments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{UserID: "user-1", CourseID: "course-1"}
	seeded := []models.Assessment{
		{AssignmentName: "Assignment 1", Weight: 0.3},
		{AssignmentName: "Final Exam", Weight: 0.5},
	}
	err := repo.CreateWithAssessments(context.Background(), enrollment, seeded)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, enrollment.ID, seeded[0].EnrollmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}
