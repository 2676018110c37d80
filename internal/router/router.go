package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/library-circulation/internal/handler"
	"github.com/iliyamo/library-circulation/internal/middleware"
)

// Middlewares are built once in main from the Redis-backed config. Nil
// entries are skipped.
type Middlewares struct {
	JWTSecret       string
	RateLimit       echo.MiddlewareFunc
	Cache           echo.MiddlewareFunc // GET catalogue search and stats
	CacheInvalidate echo.MiddlewareFunc // every authenticated write
}

func (m Middlewares) chain(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, f := range mw {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth exposes the token endpoints under /api/auth and GET /api/me.
// Logout stays public so that a refresh token alone can end a session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, m Middlewares) {
	g := e.Group("/api/auth", m.chain(m.RateLimit)...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token and keeps the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/api/me", a.Me, m.chain(middleware.JWTAuth(m.JWTSecret), m.RateLimit)...)
}

// protected returns a group under prefix that requires a valid access token.
// The limiter runs after JWTAuth so that it can key on the user.
func protected(e *echo.Echo, prefix string, m Middlewares) *echo.Group {
	return e.Group(prefix, m.chain(middleware.JWTAuth(m.JWTSecret), m.RateLimit, m.CacheInvalidate)...)
}
