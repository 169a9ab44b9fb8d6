package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartfix/internal/utils"
)

// Context keys written by JWTAuth and OptionalJWT.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextEmail  = "email"
)

// JWTAuth validates a Bearer access token and stores its subject, role and
// email in the echo context.  Requests without a valid token are rejected
// with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setClaims(c, claims)
			return next(c)
		}
	}
}

// OptionalJWT behaves like JWTAuth when a token is present but lets
// anonymous requests through.  A present but invalid token is still a 401 so
// clients notice an expired session instead of silently becoming guests.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return next(c)
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setClaims(c, claims)
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

func setClaims(c echo.Context, cl utils.Claims) {
	c.Set(ContextUserID, cl.UserID)
	c.Set(ContextRole, cl.Role)
	c.Set(ContextEmail, cl.Email)
}
