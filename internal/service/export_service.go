package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coursemark/coursemark-api/internal/grading"
	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
	"github.com/coursemark/coursemark-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus metadata for HTTP delivery.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

type exportEnrollmentLister interface {
	List(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
}

// ExportService renders a student's grade summary across all enrollments.
type ExportService struct {
	enrollments exportEnrollmentLister
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(enrollments exportEnrollmentLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// GradeSummary renders one row per enrollment with the current overall grade
// and completion progress.
func (s *ExportService) GradeSummary(ctx context.Context, userID string, format ExportFormat) (*ExportResult, error) {
	enrollments, err := s.enrollments.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Course Code", "Course Name", "Semester", "Year", "Overall Grade", "Completed", "Total"},
	}
	for _, e := range enrollments {
		entries := make([]grading.Entry, len(e.Assessments))
		completed := 0
		for i, a := range e.Assessments {
			entries[i] = grading.Entry{Mark: a.Mark, Weight: a.Weight}
			if a.Completed() {
				completed++
			}
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course Code":   e.CourseCode,
			"Course Name":   e.CourseName,
			"Semester":      e.Semester,
			"Year":          strconv.Itoa(e.Year),
			"Overall Grade": strconv.FormatFloat(grading.TotalScore(entries), 'f', 2, 64),
			"Completed":     strconv.Itoa(completed),
			"Total":         strconv.Itoa(len(entries)),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("grade-summary-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := s.pdf.Render(dataset, "Grade Summary")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("grade-summary-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// ParseExportFormat normalises a query-string format value.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}
