package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

type staticEnrollmentLister struct {
	enrollments []models.EnrollmentDetail
}

func (s *staticEnrollmentLister) List(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	return s.enrollments, nil
}

func newExportFixture() *ExportService {
	lister := &staticEnrollmentLister{enrollments: []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{ID: "enr-1", UserID: "user-1"},
			CourseCode: "COMP1511",
			CourseName: "Programming Fundamentals",
			Semester:   "T1",
			Year:       2026,
			Assessments: []models.Assessment{
				{AssignmentName: "Assignment 1", Weight: 0.3, Mark: floatPtr(80)},
				{AssignmentName: "Final Exam", Weight: 0.7, Mark: nil},
			},
		},
	}}
	return NewExportService(lister, zap.NewNop())
}

func TestExportServiceGradeSummaryCSV(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.GradeSummary(context.Background(), "user-1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, result.FileName, ".csv")
	assert.True(t, bytes.Contains(result.Data, []byte("Course Code")))
	assert.True(t, bytes.Contains(result.Data, []byte("COMP1511")))
	// 80 * 0.3 with the final exam still ungraded.
	assert.True(t, bytes.Contains(result.Data, []byte("24.00")))
}

func TestExportServiceGradeSummaryPDF(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.GradeSummary(context.Background(), "user-1", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Contains(t, result.FileName, ".pdf")
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.GradeSummary(context.Background(), "user-1", ExportFormat("xlsx"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	format, err = ParseExportFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, format)

	_, err = ParseExportFormat("xlsx")
	require.Error(t, err)
}
