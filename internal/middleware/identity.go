package middleware

// identity.go holds the accessors handlers use to read the authenticated
// caller out of the echo context.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(ContextUserID).(string)
	return s
}

// Role returns the caller's role claim, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(ContextRole).(string)
	return s
}

// Email returns the caller's email claim, or "".
func Email(c echo.Context) string {
	s, _ := c.Get(ContextEmail).(string)
	return s
}

// rateSubject identifies the caller for rate limiting.
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
