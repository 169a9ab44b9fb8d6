package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartfix/internal/config"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/repository"
	"github.com/iliyamo/smartfix/internal/utils"
)

type MockAccounts struct{ mock.Mock }

func (m *MockAccounts) Create(ctx context.Context, in repository.NewUser, cost int) (string, error) {
	args := m.Called(ctx, in, cost)
	return args.String(0), args.Error(1)
}
func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}
func (m *MockAccounts) GetByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

type MockSessions struct{ mock.Mock }

func (m *MockSessions) Store(ctx context.Context, userID, hash string, exp time.Time) error {
	return m.Called(ctx, userID, hash, exp).Error(0)
}
func (m *MockSessions) Consume(ctx context.Context, hash string) (string, error) {
	args := m.Called(ctx, hash)
	return args.String(0), args.Error(1)
}
func (m *MockSessions) Revoke(ctx context.Context, hash string) error {
	return m.Called(ctx, hash).Error(0)
}
func (m *MockSessions) RevokeAll(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

var authCfg = config.Config{JWTSecret: "s3cret", AccessTTLMin: 15, RefreshTTLDays: 30, BcryptCost: 4}

func TestAuth_RegisterCreatesCustomerOnly(t *testing.T) {
	users, sessions := new(MockAccounts), new(MockSessions)
	users.On("Create", mock.Anything, mock.MatchedBy(func(in repository.NewUser) bool {
		return in.Email == "ann@example.com" && in.Role == model.RoleCustomer
	}), 4).Return("u1", nil).Once()
	users.On("Create", mock.Anything, mock.Anything, 4).Return("", repository.ErrEmailExists).Once()
	sessions.On("Store", mock.Anything, "u1", mock.Anything, mock.Anything).Return(nil)
	h := NewAuthHandler(authCfg, users, sessions, nil)

	rec := do(h.Register, http.MethodPost, "/", `{"email":" Ann@Example.com","password":"long enough","role":"ADMIN"}`, nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	access := decode(t, rec)["access"].(map[string]any)["token"].(string)
	claims, err := utils.ParseAccessToken("s3cret", access)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, claims.Role)
	assert.Equal(t, "ann@example.com", claims.Email)

	rec = do(h.Register, http.MethodPost, "/", `{"email":"ann@example.com","password":"long enough"}`, nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h.Register, http.MethodPost, "/", `{"email":"bob@example.com","password":"short"}`, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNumberOfCalls(t, "Create", 2)
}

func TestAuth_Login(t *testing.T) {
	hash, err := utils.HashPassword("correct horse", 4)
	require.NoError(t, err)
	users, sessions := new(MockAccounts), new(MockSessions)
	users.On("GetByEmail", mock.Anything, "tech@example.com").
		Return(model.User{ID: "u2", Email: "tech@example.com", Role: model.RoleEmployee, PasswordHash: hash, IsActive: true}, nil)
	users.On("GetByEmail", mock.Anything, "gone@example.com").
		Return(model.User{ID: "u3", PasswordHash: hash, IsActive: false}, nil)
	users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(model.User{}, repository.ErrNotFound)
	sessions.On("Store", mock.Anything, "u2", mock.Anything, mock.Anything).Return(nil)
	h := NewAuthHandler(authCfg, users, sessions, nil)

	rec := do(h.Login, http.MethodPost, "/", `{"email":"tech@example.com","password":"correct horse"}`, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EMPLOYEE", decode(t, rec)["user"].(map[string]any)["role"])

	for _, body := range []string{
		`{"email":"tech@example.com","password":"wrong horse"}`,
		`{"email":"gone@example.com","password":"correct horse"}`,
		`{"email":"nobody@example.com","password":"correct horse"}`,
	} {
		rec = do(h.Login, http.MethodPost, "/", body, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, body)
	}
	sessions.AssertNumberOfCalls(t, "Store", 1)
}

func TestAuth_RefreshIsSingleUse(t *testing.T) {
	users, sessions := new(MockAccounts), new(MockSessions)
	hash := utils.HashRefreshRaw("raw-token")
	sessions.On("Consume", mock.Anything, hash).Return("u1", nil).Once()
	sessions.On("Consume", mock.Anything, hash).Return("", repository.ErrNotFound).Once()
	sessions.On("Store", mock.Anything, "u1", mock.Anything, mock.Anything).Return(nil)
	users.On("GetByID", mock.Anything, "u1").Return(model.User{ID: "u1", Role: model.RoleCustomer, IsActive: true}, nil)
	h := NewAuthHandler(authCfg, users, sessions, nil)

	rec := do(h.Refresh, http.MethodPost, "/", `{"refresh_token":"raw-token"}`, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(h.Refresh, http.MethodPost, "/", `{"refresh_token":"raw-token"}`, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_Logout(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("Revoke", mock.Anything, utils.HashRefreshRaw("stale")).Return(repository.ErrNotFound)
	sessions.On("RevokeAll", mock.Anything, "u1").Return(nil)
	h := NewAuthHandler(authCfg, new(MockAccounts), sessions, nil)

	rec := do(h.Logout, http.MethodPost, "/", `{"refresh_token":"stale"}`, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(h.Logout, http.MethodPost, "/", `{}`, nil, "u1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(h.Logout, http.MethodPost, "/", `{}`, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
