package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

type assessmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	CreateValidated(ctx context.Context, enrollmentID string, assessments []models.Assessment) error
	UpdateMark(ctx context.Context, id string, mark float64) error
	UpdateWeight(ctx context.Context, id string, weight float64) error
	SoftDelete(ctx context.Context, id string) error
}

type assessmentEnrollmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type assessmentRankCache interface {
	InvalidateCourse(ctx context.Context, courseID string)
}

// CreateAssessmentRequest adds one manual assessment to an enrollment. Weight
// is a fraction, not a percentage.
type CreateAssessmentRequest struct {
	EnrollmentID   string  `json:"enrollment_id" validate:"required"`
	AssignmentName string  `json:"assignment_name" validate:"required,max=255"`
	Weight         float64 `json:"weight" validate:"gte=0,lte=1"`
	IsHurdled      bool    `json:"is_hurdled"`
}

// UpdateMarkRequest records a mark on the 0-100 scale.
type UpdateMarkRequest struct {
	Mark float64 `json:"mark" validate:"gte=0,lte=100"`
}

// UpdateWeightRequest changes an assessment's weight fraction.
type UpdateWeightRequest struct {
	Weight float64 `json:"weight" validate:"gte=0,lte=1"`
}

// AssessmentService manages the per-enrollment assessment rows. All writes go
// through ownership checks; weight writes additionally go through the
// serialized validate-then-write path in the repository.
type AssessmentService struct {
	repo        assessmentRepo
	enrollments assessmentEnrollmentRepo
	ranks       assessmentRankCache
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssessmentService constructs the service. A nil ranks cache is allowed;
// cohort writes then simply skip invalidation.
func NewAssessmentService(repo assessmentRepo, enrollments assessmentEnrollmentRepo, ranks assessmentRankCache, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{repo: repo, enrollments: enrollments, ranks: ranks, validator: validate, logger: logger}
}

// Create adds an assessment after the repository confirms the enrollment's
// weight budget still has room.
func (s *AssessmentService) Create(ctx context.Context, userID string, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	enrollment, err := s.ownEnrollment(ctx, userID, req.EnrollmentID)
	if err != nil {
		return nil, err
	}

	assessment := models.Assessment{
		EnrollmentID:   req.EnrollmentID,
		AssignmentName: req.AssignmentName,
		Weight:         req.Weight,
		IsHurdled:      req.IsHurdled,
	}
	rows := []models.Assessment{assessment}
	if err := s.repo.CreateValidated(ctx, req.EnrollmentID, rows); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}
	s.invalidateRanks(ctx, enrollment.CourseID)
	return &rows[0], nil
}

// UpdateMark records a mark for an owned assessment.
func (s *AssessmentService) UpdateMark(ctx context.Context, userID, id string, req UpdateMarkRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "mark must be between 0 and 100")
	}
	_, enrollment, err := s.ownAssessment(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMark(ctx, id, req.Mark); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mark")
	}
	s.invalidateRanks(ctx, enrollment.CourseID)
	return s.reload(ctx, id)
}

// UpdateWeight changes the weight. The repository locks the enrollment's
// sibling weights and validates the new total before writing, so two
// concurrent updates cannot both slip under the 100% cap.
func (s *AssessmentService) UpdateWeight(ctx context.Context, userID, id string, req UpdateWeightRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "weight must be between 0 and 1")
	}
	if _, _, err := s.ownAssessment(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWeight(ctx, id, req.Weight); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update weight")
	}
	return s.reload(ctx, id)
}

// Delete soft-deletes one assessment.
func (s *AssessmentService) Delete(ctx context.Context, userID, id string) error {
	_, enrollment, err := s.ownAssessment(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assessment")
	}
	s.invalidateRanks(ctx, enrollment.CourseID)
	s.logger.Info("assessment deleted", zap.String("assessment_id", id), zap.String("user_id", userID))
	return nil
}

// ownAssessment loads the assessment and checks the calling user owns its
// enrollment.
func (s *AssessmentService) ownAssessment(ctx context.Context, userID, id string) (*models.Assessment, *models.Enrollment, error) {
	assessment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	enrollment, err := s.ownEnrollment(ctx, userID, assessment.EnrollmentID)
	if err != nil {
		return nil, nil, err
	}
	return assessment, enrollment, nil
}

// invalidateRanks drops the course's cached cohort ranks after a write that
// changes what other students see.
func (s *AssessmentService) invalidateRanks(ctx context.Context, courseID string) {
	if s.ranks == nil {
		return
	}
	s.ranks.InvalidateCourse(ctx, courseID)
}

func (s *AssessmentService) ownEnrollment(ctx context.Context, userID, enrollmentID string) (*models.Enrollment, error) {
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
	return enrollment, nil
}

func (s *AssessmentService) reload(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload assessment")
	}
	return assessment, nil
}
