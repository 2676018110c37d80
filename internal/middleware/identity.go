package middleware

// identity.go reads back what JWTAuth stored in the Echo context. Handlers
// use CurrentUserID and CurrentRole; the rate limiter keys anonymous callers
// as "guest".

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// CurrentUserID returns the authenticated user's ID. ok is false on routes
// not wrapped by JWTAuth.
func CurrentUserID(c echo.Context) (uint64, bool) {
    switch v := c.Get(ctxUserID).(type) {
    case uint64:
        return v, v != 0
    case float64:
        return uint64(v), v > 0
    case string:
        n, err := strconv.ParseUint(v, 10, 64)
        return n, err == nil && n != 0
    }
    return 0, false
}

// CurrentRole returns the role claim, or "" when unauthenticated.
func CurrentRole(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

func userKey(c echo.Context) string {
    if id, ok := CurrentUserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
