package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursemark/coursemark-api/internal/models"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

const testUniversityID = "2bb4f27e-7d87-4e2c-9a6f-4db53a1f2a10"

type mockUserRepo struct {
	users      map[string]models.User
	lastLogins []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-new"
	if m.users == nil {
		m.users = map[string]models.User{}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func newAuthFixture() (*AuthService, *mockUserRepo) {
	repo := &mockUserRepo{users: map[string]models.User{}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "coursemark-test",
	})
	return svc, repo
}

func seedUser(repo *mockUserRepo, password string) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	repo.users["user-1"] = models.User{
		ID:           "user-1",
		Email:        "student@example.edu",
		PasswordHash: string(hash),
		FullName:     "Test Student",
		UniversityID: testUniversityID,
		Active:       true,
	}
}

func TestAuthServiceRegister(t *testing.T) {
	svc, repo := newAuthFixture()

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:        "Student@Example.edu",
		Password:     "hunter22",
		FullName:     "Test Student",
		UniversityID: testUniversityID,
	})
	require.NoError(t, err)
	assert.Equal(t, "student@example.edu", info.Email)
	created := repo.users["user-new"]
	assert.True(t, created.Active)
	assert.NotEqual(t, "hunter22", created.PasswordHash)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "hunter22")

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:        "student@example.edu",
		Password:     "hunter22",
		FullName:     "Test Student",
		UniversityID: testUniversityID,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthServiceLoginAndValidateToken(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "hunter22")

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.edu",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "user-1", result.User.ID)
	assert.Equal(t, []string{"user-1"}, repo.lastLogins)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, testUniversityID, claims.UniversityID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "hunter22")

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.edu",
		Password: "wrong",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "hunter22")
	user := repo.users["user-1"]
	user.Active = false
	repo.users["user-1"] = user

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.edu",
		Password: "hunter22",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceValidateTokenTampered(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "hunter22")

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.edu",
		Password: "hunter22",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(result.AccessToken + "x")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
