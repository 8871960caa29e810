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

type mockCourseStore struct {
	courses map[string]models.Course
	exists  bool
}

func (m *mockCourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (m *mockCourseStore) FindByOffering(ctx context.Context, filter models.CourseFilter) (*models.Course, error) {
	for _, c := range m.courses {
		if c.UniversityID == filter.UniversityID && c.CourseCode == filter.CourseCode &&
			c.Semester == filter.Semester && c.Year == filter.Year {
			course := c
			return &course, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStore) ListByUniversity(ctx context.Context, universityID string) ([]models.CourseSummary, error) {
	var result []models.CourseSummary
	for _, c := range m.courses {
		if c.UniversityID == universityID {
			result = append(result, models.CourseSummary{ID: c.ID, CourseCode: c.CourseCode, CourseName: c.CourseName})
		}
	}
	return result, nil
}

func (m *mockCourseStore) Autocomplete(ctx context.Context, universityID, term string, limit int) ([]models.CourseSummary, error) {
	return m.ListByUniversity(ctx, universityID)
}

func (m *mockCourseStore) Exists(ctx context.Context, filter models.CourseFilter) (bool, error) {
	return m.exists, nil
}

func (m *mockCourseStore) Create(ctx context.Context, course *models.Course) error {
	course.ID = "course-new"
	if m.courses == nil {
		m.courses = map[string]models.Course{}
	}
	m.courses[course.ID] = *course
	return nil
}

func newCourseFixture() (*CourseService, *mockCourseStore) {
	store := &mockCourseStore{courses: map[string]models.Course{}}
	svc := NewCourseService(store, validator.New(), zap.NewNop(), 10)
	return svc, store
}

func validCourseRequest() CreateCourseRequest {
	return CreateCourseRequest{
		UniversityID: "uni-1",
		CourseCode:   "comp1511",
		CourseName:   "Programming Fundamentals",
		Semester:     "T1",
		Year:         2026,
		Credit:       6,
		Assessments: []CourseAssessmentRequest{
			{Title: "Assignment 1", Weight: "30%"},
			{Title: "Final Exam", Weight: "70%"},
		},
	}
}

func TestParsePercentage(t *testing.T) {
	cases := []struct {
		raw      string
		expected float64
		wantErr  bool
	}{
		{"30%", 0.3, false},
		{" 70% ", 0.7, false},
		{"12.5%", 0.125, false},
		{"100", 1.0, false},
		{"0%", 0, false},
		{"", 0, true},
		{"see outline", 0, true},
		{"-10%", 0, true},
	}
	for _, tc := range cases {
		got, err := ParsePercentage(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.InDelta(t, tc.expected, got, 1e-9, tc.raw)
	}
}

func TestCourseServiceCreateUppercasesCode(t *testing.T) {
	svc, store := newCourseFixture()

	course, err := svc.Create(context.Background(), validCourseRequest(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "COMP1511", course.CourseCode)
	assert.Equal(t, "user-1", course.CreatedBy)
	assert.Contains(t, store.courses, "course-new")
}

func TestCourseServiceCreateTemplateOverweight(t *testing.T) {
	svc, _ := newCourseFixture()
	req := validCourseRequest()
	req.Assessments = []CourseAssessmentRequest{
		{Title: "Assignment 1", Weight: "60%"},
		{Title: "Final Exam", Weight: "70%"},
	}

	_, err := svc.Create(context.Background(), req, "user-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrWeightExceeded.Code, appErr.Code)
}

func TestCourseServiceCreateMalformedTemplateWeight(t *testing.T) {
	svc, _ := newCourseFixture()
	req := validCourseRequest()
	req.Assessments[0].Weight = "see outline"

	_, err := svc.Create(context.Background(), req, "user-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCourseServiceCreateDuplicateOffering(t *testing.T) {
	svc, store := newCourseFixture()
	store.exists = true

	_, err := svc.Create(context.Background(), validCourseRequest(), "user-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCourseServiceImportDefaultsCreator(t *testing.T) {
	svc, store := newCourseFixture()

	course, err := svc.Import(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "system", course.CreatedBy)
	assert.Contains(t, store.courses, "course-new")
}

func TestCourseServiceLookup(t *testing.T) {
	svc, _ := newCourseFixture()
	_, err := svc.Create(context.Background(), validCourseRequest(), "user-1")
	require.NoError(t, err)

	course, err := svc.Lookup(context.Background(), models.CourseFilter{
		UniversityID: "uni-1",
		CourseCode:   "comp1511",
		Semester:     "T1",
		Year:         2026,
	})
	require.NoError(t, err)
	assert.Equal(t, "COMP1511", course.CourseCode)
	assert.Equal(t, "Programming Fundamentals", course.CourseName)
}

func TestCourseServiceLookupMissingOffering(t *testing.T) {
	svc, _ := newCourseFixture()

	_, err := svc.Lookup(context.Background(), models.CourseFilter{
		UniversityID: "uni-1",
		CourseCode:   "COMP9999",
		Semester:     "T1",
		Year:         2026,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCourseServiceLookupRequiresCoordinates(t *testing.T) {
	svc, _ := newCourseFixture()

	_, err := svc.Lookup(context.Background(), models.CourseFilter{UniversityID: "uni-1", CourseCode: "COMP1511"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Lookup(context.Background(), models.CourseFilter{CourseCode: "COMP1511", Semester: "T1", Year: 2026})
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCourseServiceAutocompleteRequiresTerm(t *testing.T) {
	svc, _ := newCourseFixture()

	_, err := svc.Autocomplete(context.Background(), "uni-1", "  ")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCourseServiceGetMissing(t *testing.T) {
	svc, _ := newCourseFixture()

	_, err := svc.Get(context.Background(), "course-gone")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
