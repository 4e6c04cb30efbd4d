package middleware

// identity.go holds helpers shared across middleware files. userID
// pulls the subject claim from a JWT stored in the Echo context and
// falls back to "guest" for unauthenticated requests, so rate-limit
// keys stay stable either way.

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// userID extracts a member identifier from the JWT stored in context.
// It returns "guest" when no token is present or the claims are
// missing.
func userID(c echo.Context) string {
	u := c.Get("user")
	if u == nil {
		return "guest"
	}
	if tok, ok := u.(*jwt.Token); ok {
		if cl, ok := tok.Claims.(jwt.MapClaims); ok {
			if v, ok := cl["sub"].(string); ok && v != "" {
				return v
			}
			if v, ok := cl["user_id"].(string); ok && v != "" {
				return v
			}
		}
	}
	return "guest"
}
