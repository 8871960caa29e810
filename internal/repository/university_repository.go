package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/coursemark/coursemark-api/internal/models"
)

// UniversityRepository reads the universities reference table.
type UniversityRepository struct {
	db *sqlx.DB
}

// NewUniversityRepository constructs the repository.
func NewUniversityRepository(db *sqlx.DB) *UniversityRepository {
	return &UniversityRepository{db: db}
}

// List returns all universities ordered by name.
func (r *UniversityRepository) List(ctx context.Context) ([]models.University, error) {
	const query = `SELECT id, name, country, created_at FROM universities ORDER BY name`
	var universities []models.University
	if err := r.db.SelectContext(ctx, &universities, query); err != nil {
		return nil, fmt.Errorf("list universities: %w", err)
	}
	return universities, nil
}
