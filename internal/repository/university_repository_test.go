package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestUniversityRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "country", "created_at"}).
		AddRow("uni-1", "University of New South Wales", "Australia", time.Now()).
		AddRow("uni-2", "University of Sydney", "Australia", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM universities ORDER BY name")).
		WillReturnRows(rows)

	universities, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, universities, 2)
	require.Equal(t, "University of New South Wales", universities[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
