package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coursemark/coursemark-api/internal/grading"
	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

type courseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByOffering(ctx context.Context, filter models.CourseFilter) (*models.Course, error)
	ListByUniversity(ctx context.Context, universityID string) ([]models.CourseSummary, error)
	Autocomplete(ctx context.Context, universityID, term string, limit int) ([]models.CourseSummary, error)
	Exists(ctx context.Context, filter models.CourseFilter) (bool, error)
	Create(ctx context.Context, course *models.Course) error
}

// CourseAssessmentRequest is one template entry in a course payload.
type CourseAssessmentRequest struct {
	Title     string `json:"title" validate:"required"`
	Weight    string `json:"weight" validate:"required"`
	Category  string `json:"category"`
	DueDate   string `json:"due_date"`
	IsHurdled bool   `json:"is_hurdled"`
}

// CreateCourseRequest handles catalog course creation.
type CreateCourseRequest struct {
	UniversityID string                    `json:"university_id" validate:"required"`
	CourseCode   string                    `json:"course_code" validate:"required,max=64"`
	CourseName   string                    `json:"course_name" validate:"required,max=255"`
	Semester     string                    `json:"semester" validate:"required,max=255"`
	Year         int                       `json:"year" validate:"required"`
	Credit       int                       `json:"credit" validate:"gte=0"`
	Description  *string                   `json:"description"`
	Assessments  []CourseAssessmentRequest `json:"assessments" validate:"required,dive"`
}

// CourseService manages the course catalog. Scraped payloads arrive through
// Import already parsed; the scraper itself lives outside this service.
type CourseService struct {
	repo              courseRepo
	validator         *validator.Validate
	logger            *zap.Logger
	autocompleteLimit int
}

// NewCourseService constructs the service.
func NewCourseService(repo courseRepo, validate *validator.Validate, logger *zap.Logger, autocompleteLimit int) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger, autocompleteLimit: autocompleteLimit}
}

// Get returns a catalog course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// List returns catalog summaries for a university.
func (s *CourseService) List(ctx context.Context, universityID string) ([]models.CourseSummary, error) {
	if universityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "university id required")
	}
	courses, err := s.repo.ListByUniversity(ctx, universityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Autocomplete performs a catalog prefix search.
func (s *CourseService) Autocomplete(ctx context.Context, universityID, term string) ([]models.CourseSummary, error) {
	if universityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "university id required")
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search term required")
	}
	courses, err := s.repo.Autocomplete(ctx, universityID, term, s.autocompleteLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search courses")
	}
	return courses, nil
}

// Lookup resolves a course by its catalog coordinates: university, code,
// semester, and year.
func (s *CourseService) Lookup(ctx context.Context, filter models.CourseFilter) (*models.Course, error) {
	if filter.UniversityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "university id required")
	}
	filter.CourseCode = strings.ToUpper(strings.TrimSpace(filter.CourseCode))
	if filter.CourseCode == "" || filter.Semester == "" || filter.Year == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code, semester and year required")
	}
	course, err := s.repo.FindByOffering(ctx, filter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up course")
	}
	return course, nil
}

// Create inserts a catalog course with its assessment template. Template
// weights must parse and sum to at most 100%.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, createdBy string) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	weights := make([]float64, 0, len(req.Assessments))
	template := make(models.CourseAssessments, 0, len(req.Assessments))
	for _, a := range req.Assessments {
		weight, err := ParsePercentage(a.Weight)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assessment %q: %v", a.Title, err))
		}
		weights = append(weights, weight)
		template = append(template, models.CourseAssessment{
			Title:     a.Title,
			Weight:    a.Weight,
			Category:  a.Category,
			DueDate:   a.DueDate,
			IsHurdled: a.IsHurdled,
		})
	}
	if !grading.ValidateWeights(weights, nil) {
		return nil, appErrors.Clone(appErrors.ErrWeightExceeded, "template weights exceed 100%")
	}

	filter := models.CourseFilter{UniversityID: req.UniversityID, CourseCode: req.CourseCode, Semester: req.Semester, Year: req.Year}
	exists, err := s.repo.Exists(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course offering")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course offering already exists")
	}

	if createdBy == "" {
		createdBy = "system"
	}
	course := &models.Course{
		UniversityID: req.UniversityID,
		CourseCode:   strings.ToUpper(strings.TrimSpace(req.CourseCode)),
		CourseName:   req.CourseName,
		Semester:     req.Semester,
		Year:         req.Year,
		Credit:       req.Credit,
		Description:  req.Description,
		Assessments:  template,
		CreatedBy:    createdBy,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Import ingests a scraped course payload as the system user. Payloads go
// through the same validation as manual creation, so a scraped weight that
// does not parse rejects the whole course. Malformed weights already sitting
// in the catalog are tolerated later, at enrollment seeding.
func (s *CourseService) Import(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	return s.Create(ctx, req, "system")
}

// ParsePercentage converts a catalog weight string such as "30%" into a
// fraction. Plain numbers without the percent sign are accepted too.
func ParsePercentage(raw string) (float64, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if trimmed == "" {
		return 0, fmt.Errorf("empty weight")
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable weight %q", raw)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("invalid weight %q", raw)
	}
	return value / 100, nil
}
