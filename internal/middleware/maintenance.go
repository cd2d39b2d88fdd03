package middleware

import (
    "crypto/subtle"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/community-events/internal/config"
)

// BypassHeader carries the maintenance bypass token.
const BypassHeader = "X-Maintenance-Bypass"

// Maintenance answers 503 with cfg.Message for every route except the
// health check while maintenance mode is on.  Requests presenting the
// bypass token are served normally.
func Maintenance(cfg config.MaintenanceConfig) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().URL.Path == "/healthz" {
                return next(c)
            }
            if tok := c.Request().Header.Get(BypassHeader); cfg.BypassToken != "" && tok != "" &&
                subtle.ConstantTimeCompare([]byte(tok), []byte(cfg.BypassToken)) == 1 {
                return next(c)
            }
            c.Response().Header().Set("Retry-After", "120")
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "maintenance", "message": cfg.Message})
        }
    }
}
