package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles.  It must run after
// JWTAuth, which stores the "role" claim in the context.  Anything else is
// answered with 403 and the ACCESS_DENIED code.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[CurrentRole(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "ACCESS_DENIED"})
            }
            return next(c)
        }
    }
}
