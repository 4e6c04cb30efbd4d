package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashpoint/space-inventory/internal/utils"
)

const testSecret = "unit-test-secret"

func runWithAuth(t *testing.T, header string, mw echo.MiddlewareFunc, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(h)(c))
	return rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec := runWithAuth(t, "", JWTAuth(testSecret), okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthMalformedHeader(t *testing.T) {
	rec := runWithAuth(t, "Token abcdef", JWTAuth(testSecret), okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthInvalidToken(t *testing.T) {
	rec := runWithAuth(t, "Bearer not.a.jwt", JWTAuth(testSecret), okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 1, "MEMBER", 5)
	require.NoError(t, err)
	rec := runWithAuth(t, "Bearer "+at.Token, JWTAuth(testSecret), okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthValidTokenInjectsClaims(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 42, "MEMBER", 5)
	require.NoError(t, err)

	var gotSub interface{}
	var gotRole interface{}
	h := func(c echo.Context) error {
		gotSub = c.Get("user_id")
		gotRole = c.Get("role")
		return c.String(http.StatusOK, "ok")
	}
	rec := runWithAuth(t, "Bearer "+at.Token, JWTAuth(testSecret), h)

	assert.Equal(t, http.StatusOK, rec.Code)
	// JSON numbers in claims decode as float64.
	assert.Equal(t, float64(42), gotSub)
	assert.Equal(t, "MEMBER", gotRole)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     interface{}
		allowed  []string
		wantCode int
	}{
		{"allowed role", "ADMIN", []string{"ADMIN", "MEMBER"}, http.StatusOK},
		{"second allowed role", "MEMBER", []string{"ADMIN", "MEMBER"}, http.StatusOK},
		{"role not in set", "VIEWER", []string{"ADMIN"}, http.StatusForbidden},
		{"missing role", nil, []string{"ADMIN"}, http.StatusForbidden},
		{"non-string role", 7, []string{"ADMIN"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.role != nil {
				c.Set("role", tt.role)
			}
			require.NoError(t, RequireRole(tt.allowed...)(okHandler)(c))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
