package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles.  The roles
// accepted should correspond to the values stored in the JWT's "role"
// claim.  Anonymous callers get the 401 login response; authenticated
// callers with another role get 403 Forbidden.  It assumes JWTAuth ran
// earlier in the chain.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    // Build a set of allowed roles for constant‑time lookups.
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if _, ok := UserID(c); !ok {
                return Unauthorized(c)
            }
            if !allowed[Role(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
