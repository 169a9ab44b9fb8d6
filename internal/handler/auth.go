package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/config"
	"github.com/iliyamo/smartfix/internal/logger"
	"github.com/iliyamo/smartfix/internal/middleware"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/repository"
	"github.com/iliyamo/smartfix/internal/utils"
)

// Accounts is the user table as seen by sign-in.
type Accounts interface {
	Create(ctx context.Context, in repository.NewUser, cost int) (string, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Sessions stores refresh tokens by hash.
type Sessions interface {
	Store(ctx context.Context, userID, tokenHash string, exp time.Time) error
	Consume(ctx context.Context, tokenHash string) (string, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAll(ctx context.Context, userID string) error
}

// AuthHandler serves sign-up, sign-in and session endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  Accounts
	Tokens Sessions
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, users Accounts, tokens Sessions, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates a CUSTOMER account and returns tokens immediately.  Staff
// accounts are provisioned by an administrator, never through this endpoint.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if err := utils.CheckPassword(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Email:    req.Email, Password: req.Password, Role: model.RoleCustomer,
		FullName: req.FullName, Phone: req.Phone,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		logger.FromContext(c, h.Log).Error("create user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	u := model.User{ID: uid, Email: req.Email, Role: model.RoleCustomer, FullName: strings.TrimSpace(req.FullName)}
	resp, status, msg := h.issue(ctx, u)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	resp, status, msg := h.issue(ctx, u)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh consumes a refresh token and issues a new pair.  Each refresh
// token works once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.Consume(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}

	resp, status, msg := h.issue(ctx, u)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every session of the
// caller when only an access token is supplied.  The route is mounted behind
// OptionalJWT.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)
	uid := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch {
	case refreshToken != "":
		err := h.Tokens.Revoke(ctx, utils.HashRefreshRaw(refreshToken))
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	case uid != "":
		if err := h.Tokens.RevokeAll(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        u.ID,
		"email":     u.Email,
		"role":      u.Role,
		"full_name": u.FullName,
		"phone":     u.Phone,
	})
}

// issue signs an access token, stores a fresh refresh token and builds the
// response.  A non-zero status means failure.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, int, string) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, http.StatusInternalServerError, "issue access failed"
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, http.StatusInternalServerError, "issue refresh failed"
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, http.StatusInternalServerError, "save refresh failed"
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role, FullName: u.FullName},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, 0, ""
}
