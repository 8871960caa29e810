package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/coursemark/coursemark-api/internal/grading"
	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

type gradeEnrollmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type gradeAssessmentRepo interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Assessment, error)
}

// GradeService projects grades from an enrollment's active assessments. All
// arithmetic lives in the grading package; this layer handles ownership,
// loading, and error shaping.
type GradeService struct {
	enrollments gradeEnrollmentRepo
	assessments gradeAssessmentRepo
	logger      *zap.Logger

	// defaultTarget is the target grade used when the caller omits one,
	// conventionally the pass mark.
	defaultTarget float64
}

// NewGradeService constructs the service.
func NewGradeService(enrollments gradeEnrollmentRepo, assessments gradeAssessmentRepo, logger *zap.Logger, defaultTarget float64) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{enrollments: enrollments, assessments: assessments, logger: logger, defaultTarget: defaultTarget}
}

// DefaultTarget exposes the configured fallback target grade.
func (s *GradeService) DefaultTarget() float64 {
	return s.defaultTarget
}

// OverallGrade returns the weighted "grade so far" for an enrollment.
func (s *GradeService) OverallGrade(ctx context.Context, userID, enrollmentID string) (*models.EnrollmentGrade, error) {
	assessments, err := s.load(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}
	entries := toEntries(assessments)
	completed := 0
	for _, e := range entries {
		if e.Completed() {
			completed++
		}
	}
	return &models.EnrollmentGrade{
		EnrollmentID: enrollmentID,
		OverallGrade: grading.TotalScore(entries),
		Completed:    completed,
		Total:        len(entries),
	}, nil
}

// RequiredMark returns the mark needed on the single remaining assessment to
// reach the target. A non-positive target falls back to the configured
// default. Precondition failures (zero or multiple remaining, zero weight)
// surface as typed 422 errors.
func (s *GradeService) RequiredMark(ctx context.Context, userID, enrollmentID string, target float64) (*models.RequiredMarkResult, error) {
	if target <= 0 {
		target = s.defaultTarget
	}
	if target > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target grade must be at most 100")
	}
	assessments, err := s.load(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}
	required, err := grading.RequiredMark(toEntries(assessments), target)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute required mark")
	}
	return &models.RequiredMarkResult{
		EnrollmentID: enrollmentID,
		TargetGrade:  target,
		RequiredMark: required,
	}, nil
}

// load fetches the enrollment's active assessments after an ownership check.
func (s *GradeService) load(ctx context.Context, userID, enrollmentID string) ([]models.Assessment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another user")
	}
	assessments, err := s.assessments.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	return assessments, nil
}

func toEntries(assessments []models.Assessment) []grading.Entry {
	entries := make([]grading.Entry, len(assessments))
	for i, a := range assessments {
		entries[i] = grading.Entry{Mark: a.Mark, Weight: a.Weight}
	}
	return entries
}
