package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harborview/timetable-api/internal/dto"
	"github.com/harborview/timetable-api/internal/models"
	"github.com/harborview/timetable-api/pkg/config"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
)

type userStoreStub struct {
	users map[string]*models.User
}

func (s *userStoreStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *userStoreStub) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newAuthFixture(t *testing.T) (*AuthService, *userStoreStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("registrar-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &userStoreStub{users: map[string]*models.User{
		"admin@harborview.edu": {
			ID:           "user-1",
			Email:        "admin@harborview.edu",
			FullName:     "Alex Rivera",
			Role:         "ADMIN",
			PasswordHash: string(hash),
		},
	}}
	svc := NewAuthService(store, nil, nil, config.JWTConfig{Secret: "test-secret", Expiration: time.Hour})
	return svc, store
}

func TestAuthServiceLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "admin@harborview.edu",
		Password: "registrar-pass",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, "ADMIN", resp.User.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "admin@harborview.edu",
		Password: "not-the-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "nobody@harborview.edu",
		Password: "registrar-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceVerifyTokenRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "admin@harborview.edu",
		Password: "registrar-pass",
	})
	require.NoError(t, err)

	claims, err := svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin@harborview.edu", claims.Email)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestAuthServiceVerifyTokenRejectsTampered(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "admin@harborview.edu",
		Password: "registrar-pass",
	})
	require.NoError(t, err)

	_, err = svc.VerifyToken(resp.Token + "x")
	require.Error(t, err)

	other := NewAuthService(&userStoreStub{}, nil, nil, config.JWTConfig{Secret: "other-secret", Expiration: time.Hour})
	_, err = other.VerifyToken(resp.Token)
	require.Error(t, err)
}
