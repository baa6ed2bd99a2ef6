package router // package router defines how HTTP routes are registered for the API

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/handler"
	"github.com/iliyamo/user-account-service/internal/middleware"
)

// RegisterRoutes registers routes that do not belong to the user API.
// Currently it exposes only a health check, used by load balancers and
// monitoring systems to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterUserAPI wires the whole /api/v1/users surface: CORS for
// browser clients, the public register/login/refresh endpoints, and
// the protected account routes behind the session middleware.  Admin
// listing endpoints additionally pass through the Redis response cache
// (a nil rdb disables it).
func RegisterUserAPI(e *echo.Echo, h *handler.UserHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	// Every response, including panics and unmatched routes, must be a
	// valid JSON envelope with no internal detail.
	e.HTTPErrorHandler = envelopeErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{h.Cfg.CORSOrigin},
		AllowCredentials: true,
	}))

	g := e.Group("/api/v1/users")

	// Mutations drop the cached listings so they never serve a user
	// that was just created, updated or deleted.
	evict := middleware.CacheInvalidate(cacheCfg, rdb)

	// Public routes: no session required.
	g.POST("/register", h.Register, evict)
	g.POST("/login", h.Login)
	// Refresh authenticates by the refresh token itself (cookie or
	// body), not by an access token, so it stays outside the JWT group.
	g.POST("/refresh-session", h.RefreshSession)

	// Protected routes: a valid access token attaches the identity.
	sessions := middleware.JWTAuth(h.Tokens, h.Users)
	g.POST("/logout", h.Logout, sessions)
	g.PUT("/update-user-data/:id", h.UpdateUserData, sessions, evict)

	// Admin-only routes.  RequireAdmin runs after JWTAuth; the cache
	// only ever sees responses that already passed both gates.
	admin := g.Group("", sessions, middleware.RequireAdmin())
	cached := middleware.ResponseCache(cacheCfg, rdb)
	admin.GET("/get-all-users", h.GetAllUsers, cached)
	admin.GET("/get-user/:id", h.GetUserByID, cached)
	admin.DELETE("/delete-user/:id", h.DeleteUserByID, evict)
}

// envelopeErrorHandler translates errors that escaped the handlers
// (echo routing errors, recovered panics) into the response envelope.
// Only the status text of known HTTP errors is surfaced; everything
// else collapses into a generic 500 message.
func envelopeErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "something went wrong"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok && code < http.StatusInternalServerError {
			msg = s
		}
	}
	_ = handler.RespondError(c, code, msg)
}
