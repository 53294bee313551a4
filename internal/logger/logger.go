// Package logger builds the application's zap logger and carries a
// request-scoped child logger through echo contexts.
package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const contextKey = "logger"

// New builds a logger for env.  Production environments get JSON output at
// info level; everything else gets colored console output at debug level.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "prod" || env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// Middleware attaches a child of base tagged with the request id, method
// and path to every request and logs the outcome once the handler returns.
// It expects echo's RequestID middleware to run first.
func Middleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = req.Header.Get(echo.HeaderXRequestID)
			}
			l := base.With(
				zap.String("request_id", rid),
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
			)
			c.Set(contextKey, l)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			switch {
			case status >= 500:
				l.Error("request failed", append(fields, zap.Error(err))...)
			case status >= 400:
				l.Warn("request rejected", fields...)
			default:
				l.Info("request served", fields...)
			}
			return nil
		}
	}
}

// From returns the request-scoped logger, or a no-op logger when the
// middleware did not run.
func From(c echo.Context) *zap.Logger {
	if l, ok := c.Get(contextKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
