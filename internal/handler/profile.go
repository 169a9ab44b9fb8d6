package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/logger"
	"github.com/iliyamo/smartfix/internal/middleware"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/profile"
)

// ProfileLoader builds the customer portal view-model.
type ProfileLoader interface {
	Load(ctx context.Context, id profile.Identity) (profile.Profile, error)
}

// UserSource reads the account behind a token.
type UserSource interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

type ProfileHandler struct {
	Loader ProfileLoader
	Users  UserSource
	Log    *zap.Logger
}

func NewProfileHandler(loader ProfileLoader, users UserSource, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{Loader: loader, Users: users, Log: log}
}

// Get returns the aggregated profile of the caller.  Sections that failed or
// timed out carry their default values; the response is 200 either way.
func (h *ProfileHandler) Get(c echo.Context) error {
	id := profile.Identity{UserID: middleware.UserID(c), Email: middleware.Email(c)}
	ctx := c.Request().Context()

	lookupCtx, cancel := requestCtx(c)
	u, err := h.Users.GetByID(lookupCtx, id.UserID)
	cancel()
	if err != nil {
		logger.FromContext(c, h.Log).Warn("profile user lookup failed", zap.String("user_id", id.UserID), zap.Error(err))
	} else {
		id.Name, id.Phone = u.FullName, u.Phone
		if id.Email == "" {
			id.Email = u.Email
		}
	}

	p, err := h.Loader.Load(ctx, id)
	if err != nil {
		// only a cancelled request gets here
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request cancelled"})
	}
	return c.JSON(http.StatusOK, p)
}
