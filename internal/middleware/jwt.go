package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// LoginPath is where clients send users that are not signed in.  The
// identity provider owns the page; the API only points at it.
const LoginPath = "/login"

// Unauthorized writes the 401 response used by every protected route.  It
// plays the role of a redirect to login for API clients.
func Unauthorized(c echo.Context) error {
    c.Response().Header().Set("WWW-Authenticate", `Bearer realm="community-events"`)
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "login": LoginPath})
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context.  The
// provided secret must match the one used by the identity provider when
// issuing tokens.  Handlers read the caller through UserID, Role and
// ActorFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
    parser := jwt.NewParser(
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
    )
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return Unauthorized(c)
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims := jwt.MapClaims{}
            tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return Unauthorized(c)
            }

            uid, ok := parseSubject(claims["sub"])
            if !ok {
                return Unauthorized(c)
            }
            role, _ := claims["role"].(string)

            c.Set(userIDKey, uid)
            c.Set(roleKey, strings.ToUpper(role))
            return next(c)
        }
    }
}
