package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/handler"
	"github.com/stashpoint/space-inventory/internal/middleware"
	"github.com/stashpoint/space-inventory/internal/model"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check, used by load balancers and monitoring to verify the service
// is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the account and session endpoints. Signup,
// login and refresh are unauthenticated; /v1/me requires a valid
// access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Signup doubles as member creation: POST /v1/members is the only
	// way a member row comes into existence.
	g := e.Group("/v1/members")
	g.POST("", a.Signup)
	g.POST("/login", a.Login)
	// Refresh rotates the token pair: the presented refresh token is
	// revoked and a new one is issued alongside the access token.
	g.POST("/refresh", a.Refresh)

	auth := protected(e, jwtSecret)
	auth.GET("/me", a.Me)
}

// protected returns the /v1 group with JWT authentication and role
// screening applied. All three roles pass the screen; role-based
// restrictions inside a space are not enforced yet, but the middleware
// already rejects tokens with a missing or unknown role claim.
func protected(e *echo.Echo, jwtSecret string) *echo.Group {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleMember, model.RoleViewer))
	return g
}

// RegisterMembers registers the member directory endpoints. All of
// them require authentication.
func RegisterMembers(e *echo.Echo, m *handler.MemberHandler, jwtSecret string) {
	g := protected(e, jwtSecret)
	g.GET("/members", m.List)
	g.GET("/members/:memberId", m.Get)
	g.PATCH("/members/:memberId", m.Update)
}
