package middleware

// identity.go defines helpers shared across middleware and handlers for
// reading the authenticated caller stored by JWTAuth.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/community-events/internal/model"
)

// Context keys set by JWTAuth.
const (
    userIDKey = "user_id"
    roleKey   = "role"
)

// parseSubject accepts the sub claim as a decimal string or a JSON number.
func parseSubject(v any) (uint64, bool) {
    switch t := v.(type) {
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        return n, err == nil && n > 0
    case float64:
        if t <= 0 || t != float64(uint64(t)) {
            return 0, false
        }
        return uint64(t), true
    }
    return 0, false
}

// UserID returns the authenticated user's ID.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(userIDKey).(uint64)
    return id, ok && id > 0
}

// Role returns the authenticated user's role, or "" for anonymous callers.
func Role(c echo.Context) string {
    r, _ := c.Get(roleKey).(string)
    return r
}

// ActorFrom returns the authenticated caller.
func ActorFrom(c echo.Context) (model.Actor, bool) {
    id, ok := UserID(c)
    if !ok {
        return model.Actor{}, false
    }
    return model.Actor{UserID: id, Role: Role(c)}, true
}

// userKey identifies the caller for rate limiting.  It returns "anon"
// when no user is authenticated.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
