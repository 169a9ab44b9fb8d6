package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// dbTimeout bounds the database calls of a single request.
const dbTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pageParams reads page and page_size with defaults 1 and 20, page_size
// capped at 100.
func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}
	return page, ps
}

// CacheInvalidator drops cached dashboard responses after a write.  A nil
// invalidator is skipped.
type CacheInvalidator func(ctx context.Context) error

func (fn CacheInvalidator) run(ctx context.Context) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}
