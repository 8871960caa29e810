package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

type mockEnrollmentStore struct {
	enrollments map[string]models.Enrollment
	created     []models.Assessment
	deleted     []string
}

func (m *mockEnrollmentStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &enrollment, nil
}

func (m *mockEnrollmentStore) ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	var result []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.UserID == userID {
			result = append(result, models.EnrollmentDetail{Enrollment: e})
		}
	}
	return result, nil
}

func (m *mockEnrollmentStore) CreateWithAssessments(ctx context.Context, enrollment *models.Enrollment, assessments []models.Assessment) error {
	enrollment.ID = "enr-new"
	if m.enrollments == nil {
		m.enrollments = map[string]models.Enrollment{}
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = assessments
	return nil
}

func (m *mockEnrollmentStore) SoftDelete(ctx context.Context, id, userID string) error {
	enrollment, ok := m.enrollments[id]
	if !ok || enrollment.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.enrollments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockCourseFinder struct {
	courses map[string]models.Course
}

func (m *mockCourseFinder) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func newEnrollmentFixture() (*EnrollmentService, *mockEnrollmentStore, *mockCourseFinder) {
	store := &mockEnrollmentStore{enrollments: map[string]models.Enrollment{}}
	courses := &mockCourseFinder{courses: map[string]models.Course{
		"course-1": {
			ID:         "course-1",
			CourseCode: "COMP1511",
			CourseName: "Programming Fundamentals",
			Semester:   "T1",
			Year:       2026,
			Assessments: models.CourseAssessments{
				{Title: "Assignment 1", Weight: "30%"},
				{Title: "Final Exam", Weight: "70%", IsHurdled: true},
			},
		},
		"course-bad": {
			ID:         "course-bad",
			CourseCode: "JANK1000",
			CourseName: "Malformed Catalog Entry",
			Assessments: models.CourseAssessments{
				{Title: "Mystery Task", Weight: "see outline"},
			},
		},
	}}
	assessments := &mockAssessmentLister{assessments: map[string][]models.Assessment{}}
	svc := NewEnrollmentService(store, courses, assessments, validator.New(), zap.NewNop())
	return svc, store, courses
}

func TestEnrollmentServiceCreateSeedsTemplate(t *testing.T) {
	svc, store, _ := newEnrollmentFixture()

	detail, err := svc.Create(context.Background(), "user-1", CreateEnrollmentRequest{CourseID: "course-1"})
	require.NoError(t, err)
	require.Len(t, store.created, 2)
	assert.Equal(t, "Assignment 1", store.created[0].AssignmentName)
	assert.InDelta(t, 0.3, store.created[0].Weight, 1e-9)
	assert.Nil(t, store.created[0].Mark)
	assert.InDelta(t, 0.7, store.created[1].Weight, 1e-9)
	assert.True(t, store.created[1].IsHurdled)
	assert.Equal(t, "COMP1511", detail.CourseCode)
}

func TestEnrollmentServiceCreateKeepsUnparseableWeightsAtZero(t *testing.T) {
	svc, store, _ := newEnrollmentFixture()

	_, err := svc.Create(context.Background(), "user-1", CreateEnrollmentRequest{CourseID: "course-bad"})
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Zero(t, store.created[0].Weight)
}

func TestEnrollmentServiceCreateMissingCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Create(context.Background(), "user-1", CreateEnrollmentRequest{CourseID: "course-gone"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceDeleteTwiceIsNotFound(t *testing.T) {
	svc, store, _ := newEnrollmentFixture()
	store.enrollments["enr-1"] = models.Enrollment{ID: "enr-1", UserID: "user-1", CourseID: "course-1"}

	require.NoError(t, svc.Delete(context.Background(), "user-1", "enr-1"))

	err := svc.Delete(context.Background(), "user-1", "enr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceDeleteForeignEnrollment(t *testing.T) {
	svc, store, _ := newEnrollmentFixture()
	store.enrollments["enr-1"] = models.Enrollment{ID: "enr-1", UserID: "user-1", CourseID: "course-1"}

	err := svc.Delete(context.Background(), "intruder", "enr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, store.deleted)
}
