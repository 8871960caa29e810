package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursemark/coursemark-api/internal/models"
)

// CourseRepository handles persistence of catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, university_id, course_code, course_name, semester, year, credit, description, assessments, created_by, created_at, updated_at`

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByOffering returns a course by its catalog coordinates.
func (r *CourseRepository) FindByOffering(ctx context.Context, filter models.CourseFilter) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses
        WHERE university_id = $1 AND course_code = $2 AND semester = $3 AND year = $4 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, filter.UniversityID, filter.CourseCode, filter.Semester, filter.Year); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByUniversity returns catalog course summaries for a university.
func (r *CourseRepository) ListByUniversity(ctx context.Context, universityID string) ([]models.CourseSummary, error) {
	const query = `SELECT id, course_code, course_name FROM courses WHERE university_id = $1 ORDER BY course_code`
	var courses []models.CourseSummary
	if err := r.db.SelectContext(ctx, &courses, query, universityID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Autocomplete performs a prefix full-text search over the catalog. The
// search term is bound as a parameter; building the tsquery from raw input
// is what the legacy implementation got wrong.
func (r *CourseRepository) Autocomplete(ctx context.Context, universityID, term string, limit int) ([]models.CourseSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT id, course_code, course_name FROM courses
        WHERE university_id = $1 AND fts @@ to_tsquery('simple', $2 || ':*')
        ORDER BY course_code LIMIT $3`
	var courses []models.CourseSummary
	if err := r.db.SelectContext(ctx, &courses, query, universityID, term, limit); err != nil {
		return nil, fmt.Errorf("autocomplete courses: %w", err)
	}
	return courses, nil
}

// Exists checks whether an offering is already present in the catalog.
func (r *CourseRepository) Exists(ctx context.Context, filter models.CourseFilter) (bool, error) {
	const query = `SELECT 1 FROM courses WHERE university_id = $1 AND course_code = $2 AND semester = $3 AND year = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, filter.UniversityID, filter.CourseCode, filter.Semester, filter.Year); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course offering: %w", err)
	}
	return true, nil
}

// Create persists a new catalog course with its template assessments.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, university_id, course_code, course_name, semester, year, credit, description, assessments, created_by, created_at, updated_at)
        VALUES (:id, :university_id, :course_code, :course_name, :semester, :year, :credit, :description, :assessments, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}
