package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitalpass/vitalpass/internal/platform/auth"
)

// AccessLog emits a structured security log line for every request touching
// patient data paths. This is an operational monitoring signal; the
// patient-facing non-repudiation record is the audit trail domain, written by
// the access resolver and emergency gate themselves.
func AccessLog(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !isSensitivePath(path) {
				return next(c)
			}

			err := next(c)

			ctx := c.Request().Context()
			rid, _ := c.Get("request_id").(string)

			evt := logger.Info()
			if strings.HasPrefix(path, "/emergency/") {
				evt = logger.Warn()
			}
			evt.
				Str("type", "record_access").
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(ctx)).
				Strs("user_roles", auth.RolesFromContext(ctx)).
				Str("method", c.Request().Method).
				Str("path", path).
				Str("action", methodToAction(c.Request().Method)).
				Str("remote_ip", c.RealIP()).
				Int("status", c.Response().Status).
				Time("ts", time.Now().UTC()).
				Msg("record_access")

			return err
		}
	}
}

func isSensitivePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/") || strings.HasPrefix(path, "/emergency/")
}

func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
