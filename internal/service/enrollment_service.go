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

type enrollmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
	CreateWithAssessments(ctx context.Context, enrollment *models.Enrollment, assessments []models.Assessment) error
	SoftDelete(ctx context.Context, id, userID string) error
}

type enrollmentCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentAssessmentRepo interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Assessment, error)
}

// CreateEnrollmentRequest enrolls the authenticated user in a catalog course.
type CreateEnrollmentRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// EnrollmentService manages enrollments and the assessment rows seeded from
// the course template.
type EnrollmentService struct {
	repo        enrollmentRepo
	courses     enrollmentCourseRepo
	assessments enrollmentAssessmentRepo
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(repo enrollmentRepo, courses enrollmentCourseRepo, assessments enrollmentAssessmentRepo, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, assessments: assessments, validator: validate, logger: logger}
}

// Create enrolls the user and copies the course's assessment template into
// personal assessment rows. Template entries whose catalog weight does not
// parse are seeded with zero weight so the student can fix them by hand.
func (s *EnrollmentService) Create(ctx context.Context, userID string, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	enrollment := &models.Enrollment{UserID: userID, CourseID: course.ID}
	seeded := make([]models.Assessment, 0, len(course.Assessments))
	for _, tpl := range course.Assessments {
		weight, parseErr := ParsePercentage(tpl.Weight)
		if parseErr != nil {
			s.logger.Warn("unparseable template weight, seeding as zero",
				zap.String("course_id", course.ID),
				zap.String("assignment", tpl.Title),
				zap.String("raw_weight", tpl.Weight))
			weight = 0
		}
		seeded = append(seeded, models.Assessment{
			AssignmentName: tpl.Title,
			Weight:         weight,
			IsHurdled:      tpl.IsHurdled,
		})
	}

	if err := s.repo.CreateWithAssessments(ctx, enrollment, seeded); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	detail := &models.EnrollmentDetail{
		Enrollment:  *enrollment,
		CourseCode:  course.CourseCode,
		CourseName:  course.CourseName,
		Semester:    course.Semester,
		Year:        course.Year,
		Assessments: seeded,
	}
	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("course_id", course.ID),
		zap.Int("seeded_assessments", len(seeded)))
	return detail, nil
}

// List returns the user's active enrollments with their assessments attached.
func (s *EnrollmentService) List(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	for i := range enrollments {
		assessments, err := s.assessments.ListByEnrollment(ctx, enrollments[i].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
		}
		enrollments[i].Assessments = assessments
	}
	return enrollments, nil
}

// Get returns one enrollment owned by the user, with assessments.
func (s *EnrollmentService) Get(ctx context.Context, userID, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.authorize(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, enrollment.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	assessments, err := s.assessments.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	return &models.EnrollmentDetail{
		Enrollment:  *enrollment,
		CourseCode:  course.CourseCode,
		CourseName:  course.CourseName,
		Semester:    course.Semester,
		Year:        course.Year,
		Assessments: assessments,
	}, nil
}

// Delete soft-deletes an enrollment and all of its assessments. Repeating the
// call is a 404 because the first call already consumed the active row.
func (s *EnrollmentService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.SoftDelete(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.logger.Info("enrollment deleted", zap.String("enrollment_id", id), zap.String("user_id", userID))
	return nil
}

// authorize loads the enrollment and checks ownership.
func (s *EnrollmentService) authorize(ctx context.Context, userID, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
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
