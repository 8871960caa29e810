package service

import (
	"context"

	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

type universityRepo interface {
	List(ctx context.Context) ([]models.University, error)
}

// UniversityService serves the universities reference list, used by the
// registration flow to pick a university id.
type UniversityService struct {
	repo universityRepo
}

// NewUniversityService constructs the service.
func NewUniversityService(repo universityRepo) *UniversityService {
	return &UniversityService{repo: repo}
}

// List returns all known universities.
func (s *UniversityService) List(ctx context.Context) ([]models.University, error) {
	universities, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list universities")
	}
	return universities, nil
}
