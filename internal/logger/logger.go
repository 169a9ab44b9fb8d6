// Package logger builds the process-wide zap logger and the echo middleware
// that writes one line per request.
package logger

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDHeader carries the request id in and out of the service.
const RequestIDHeader = "X-Request-ID"

// New returns a JSON logger for production and a colourised console logger
// for every other environment.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// RequestLogger logs method, path, status and latency of every request.  A
// request id is taken from the incoming header or generated, stored in the
// echo context under "request_id" and echoed back to the client.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = fmt.Sprintf("%d", start.UnixNano())
			}
			c.Set("request_id", requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.String("query", req.URL.RawQuery),
				zap.Int("status", c.Response().Status),
				zap.String("ip", c.RealIP()),
				zap.Duration("latency", time.Since(start)),
			}
			if uid, ok := c.Get("user_id").(string); ok && uid != "" {
				fields = append(fields, zap.String("user_id", uid))
			}
			switch {
			case c.Response().Status >= 500:
				log.Error("request completed", fields...)
			case c.Response().Status >= 400:
				log.Warn("request completed", fields...)
			default:
				log.Info("request completed", fields...)
			}
			return nil
		}
	}
}

// FromContext returns log enriched with the request id stored by
// RequestLogger, or log itself when none is present.
func FromContext(c echo.Context, log *zap.Logger) *zap.Logger {
	if id, ok := c.Get("request_id").(string); ok && id != "" {
		return log.With(zap.String("request_id", id))
	}
	return log
}
