package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is the liveness probe.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready checks the database and, when configured, Redis.  Redis being down
// only degrades the service, so it is reported but does not fail the probe.
func Ready(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"database": "down"})
		}
		cache := "disabled"
		if rdb != nil {
			cache = "up"
			if err := rdb.Ping(ctx).Err(); err != nil {
				cache = "down"
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"database": "up", "redis": cache})
	}
}
