package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

type rankRepo interface {
	PercentRank(ctx context.Context, assessmentID string) (*models.AssessmentRank, error)
}

type rankAssessmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
}

type rankEnrollmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// RankService computes cohort percentile ranks. The cohort is every active
// assessment sharing the course and assignment name, across all students, so
// results are cached briefly instead of recomputed per request.
type RankService struct {
	repo        rankRepo
	assessments rankAssessmentRepo
	enrollments rankEnrollmentRepo
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	cacheTTL    time.Duration
	enabled     bool
}

// NewRankService constructs the service.
func NewRankService(repo rankRepo, assessments rankAssessmentRepo, enrollments rankEnrollmentRepo, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration, enabled bool) *RankService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankService{
		repo:        repo,
		assessments: assessments,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		cacheTTL:    cacheTTL,
		enabled:     enabled,
	}
}

// Rank returns the percentile rank of the caller's assessment within its
// cohort. With fewer than two cohort members the rank is RankUnavailable, a
// deliberate sentinel distinct from a genuine 0 rank.
func (s *RankService) Rank(ctx context.Context, userID, assessmentID string) (*models.AssessmentRank, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "rankings are disabled")
	}

	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordRankQuery("not_found")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	enrollment, err := s.enrollments.FindByID(ctx, assessment.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordRankQuery("not_found")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assessment belongs to another user")
	}

	cacheKey := rankCacheKey(enrollment.CourseID, assessmentID)
	var cached models.AssessmentRank
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	rank, err := s.repo.PercentRank(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordRankQuery("not_found")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute rank")
	}
	if rank.CohortSize < 2 {
		rank.Rank = models.RankUnavailable
		s.metrics.RecordRankQuery("unavailable")
	} else {
		s.metrics.RecordRankQuery("ranked")
	}

	if err := s.cache.Set(ctx, cacheKey, rank, s.cacheTTL); err != nil {
		s.logger.Warn("rank cache set failed", zap.String("assessment_id", assessmentID), zap.Error(err))
	}
	return rank, nil
}

// InvalidateCourse drops the course's cached ranks after a cohort write. Other
// courses' entries stay warm.
func (s *RankService) InvalidateCourse(ctx context.Context, courseID string) {
	pattern := fmt.Sprintf("rank:%s:*", courseID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("rank cache invalidate failed", zap.String("course_id", courseID), zap.Error(err))
	}
}

func rankCacheKey(courseID, assessmentID string) string {
	return fmt.Sprintf("rank:%s:%s", courseID, assessmentID)
}
