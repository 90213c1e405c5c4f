package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	users []*model.User
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func newAuthFixture(t *testing.T) (*AuthService, *model.User) {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	users := &fakeUserStore{}
	svc := NewAuthService(cfg, users, nil)

	hash, err := svc.HashPassword("hunter22")
	require.NoError(t, err)
	u := &model.User{ID: uuid.New(), Name: "Huda", Email: "huda@example.com", Role: model.RoleTeacher, PasswordHash: hash}
	users.users = append(users.users, u)
	return svc, u
}

func TestLogin_IssuesValidToken(t *testing.T) {
	svc, u := newAuthFixture(t)

	res, err := svc.Login(context.Background(), model.LoginRequest{Email: " HUDA@example.com ", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.UserID)
	assert.Equal(t, "Huda", claims.Name)
	assert.Equal(t, model.RoleTeacher, claims.Role)
	assert.True(t, claims.IsStaff())
	assert.NotEmpty(t, claims.ID)
	assert.NoError(t, svc.ValidateSession(context.Background(), claims))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), model.LoginRequest{Email: "huda@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), model.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_RejectsForeignSecret(t *testing.T) {
	svc, u := newAuthFixture(t)
	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, nil, nil)

	token, _, err := other.GenerateToken(u)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "s", JWTExpiry: -time.Minute}, nil, nil)
	token, _, err := svc.GenerateToken(&model.User{ID: uuid.New(), Role: model.RoleStudent})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestMe(t *testing.T) {
	svc, u := newAuthFixture(t)

	got, err := svc.Me(context.Background(), &Claims{UserID: u.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = svc.Me(context.Background(), &Claims{UserID: "not-a-uuid"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCandidateFor(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	guest := CandidateFor(nil, "  Sami ", now)
	assert.Equal(t, "guest-1700000000123", guest.ID)
	assert.Equal(t, "  Sami ", guest.Name, "trimming happens on entry")
	assert.False(t, guest.Authenticated)

	user := CandidateFor(&Claims{UserID: "u-1", Name: "Nour", Role: model.RoleStudent}, "ignored", now)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "Nour", user.Name)
	assert.True(t, user.Authenticated)
}

func TestClaims_IsStaff(t *testing.T) {
	assert.True(t, (&Claims{Role: model.RoleAdmin}).IsStaff())
	assert.True(t, (&Claims{Role: model.RoleTeacher}).IsStaff())
	assert.False(t, (&Claims{Role: model.RoleStudent}).IsStaff())
}
