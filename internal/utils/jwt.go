package utils // package utils provides helper functions for token creation

import (
    "errors"  // errors for argument validation
    "strconv" // strconv formats the subject claim
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are sent in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user the way the
// identity provider does.  The JWT includes the standard claims subject
// (sub, decimal user ID), expiration (exp) and issued at (iat) plus the
// user's role.  It is used by the devtoken command and in tests.
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (AccessToken, error) {
    if secret == "" {
        return AccessToken{}, errors.New("empty signing secret")
    }
    if userID == 0 {
        return AccessToken{}, errors.New("user id must be positive")
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  strconv.FormatUint(userID, 10),
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
