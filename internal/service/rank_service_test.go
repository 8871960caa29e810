package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

type mockRankRepo struct {
	ranks map[string]models.AssessmentRank
	calls int
}

func (m *mockRankRepo) PercentRank(ctx context.Context, assessmentID string) (*models.AssessmentRank, error) {
	m.calls++
	rank, ok := m.ranks[assessmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &rank, nil
}

type mockAssessmentFinder struct {
	assessments map[string]models.Assessment
}

func (m *mockAssessmentFinder) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, ok := m.assessments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &assessment, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func newRankFixture(cacheRepo CacheRepository) (*RankService, *mockRankRepo) {
	ranks := &mockRankRepo{ranks: map[string]models.AssessmentRank{
		"asm-1": {AssessmentID: "asm-1", AssignmentName: "Final Exam", CourseID: "course-1", CohortSize: 5, Rank: 0.5},
		"asm-2": {AssessmentID: "asm-2", AssignmentName: "Quiz 1", CourseID: "course-1", CohortSize: 1, Rank: 0},
		"asm-3": {AssessmentID: "asm-3", AssignmentName: "Final Exam", CourseID: "course-2", CohortSize: 4, Rank: 0.25},
	}}
	assessments := &mockAssessmentFinder{assessments: map[string]models.Assessment{
		"asm-1": {ID: "asm-1", EnrollmentID: "enr-1", AssignmentName: "Final Exam"},
		"asm-2": {ID: "asm-2", EnrollmentID: "enr-1", AssignmentName: "Quiz 1"},
		"asm-3": {ID: "asm-3", EnrollmentID: "enr-2", AssignmentName: "Final Exam"},
	}}
	enrollments := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "user-1", CourseID: "course-1"},
		"enr-2": {ID: "enr-2", UserID: "user-1", CourseID: "course-2"},
	}}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), cacheRepo != nil)
	svc := NewRankService(ranks, assessments, enrollments, cache, NewMetricsService(), zap.NewNop(), time.Minute, true)
	return svc, ranks
}

func TestRankServiceReturnsCohortRank(t *testing.T) {
	svc, _ := newRankFixture(nil)

	rank, err := svc.Rank(context.Background(), "user-1", "asm-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rank.Rank, 1e-9)
	assert.Equal(t, 5, rank.CohortSize)
}

func TestRankServiceSingletonCohortUnavailable(t *testing.T) {
	svc, _ := newRankFixture(nil)

	rank, err := svc.Rank(context.Background(), "user-1", "asm-2")
	require.NoError(t, err)
	assert.Equal(t, models.RankUnavailable, rank.Rank)
	assert.Equal(t, 1, rank.CohortSize)
}

func TestRankServiceCachesResult(t *testing.T) {
	svc, ranks := newRankFixture(&memoryCacheRepo{})

	first, err := svc.Rank(context.Background(), "user-1", "asm-1")
	require.NoError(t, err)
	second, err := svc.Rank(context.Background(), "user-1", "asm-1")
	require.NoError(t, err)

	assert.Equal(t, first.Rank, second.Rank)
	assert.Equal(t, 1, ranks.calls)
}

func TestRankServiceInvalidateCourseScoped(t *testing.T) {
	svc, ranks := newRankFixture(&memoryCacheRepo{})

	_, err := svc.Rank(context.Background(), "user-1", "asm-1")
	require.NoError(t, err)
	_, err = svc.Rank(context.Background(), "user-1", "asm-3")
	require.NoError(t, err)
	require.Equal(t, 2, ranks.calls)

	svc.InvalidateCourse(context.Background(), "course-1")

	_, err = svc.Rank(context.Background(), "user-1", "asm-1")
	require.NoError(t, err)
	assert.Equal(t, 3, ranks.calls)

	_, err = svc.Rank(context.Background(), "user-1", "asm-3")
	require.NoError(t, err)
	assert.Equal(t, 3, ranks.calls)
}

func TestRankServiceMissingAssessment(t *testing.T) {
	svc, _ := newRankFixture(nil)

	_, err := svc.Rank(context.Background(), "user-1", "asm-gone")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRankServiceForeignAssessment(t *testing.T) {
	svc, _ := newRankFixture(nil)

	_, err := svc.Rank(context.Background(), "intruder", "asm-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestRankServiceDisabled(t *testing.T) {
	ranks := &mockRankRepo{}
	assessments := &mockAssessmentFinder{}
	enrollments := &mockEnrollmentRepo{}
	cache := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewRankService(ranks, assessments, enrollments, cache, nil, zap.NewNop(), time.Minute, false)

	_, err := svc.Rank(context.Background(), "user-1", "asm-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
