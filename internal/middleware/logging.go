package middleware

import (
    "log/slog"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = echo.HeaderXRequestID

// RequestLogger assigns a request id (unless the client sent one) and logs
// one line per request once the handler chain has finished.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            rid := c.Request().Header.Get(RequestIDHeader)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(RequestIDHeader, rid)

            err := next(c)
            if err != nil {
                c.Error(err)
            }

            attrs := []any{
                "request_id", rid,
                "method", c.Request().Method,
                "path", c.Path(),
                "status", c.Response().Status,
                "latency_ms", time.Since(start).Milliseconds(),
            }
            if id, ok := CurrentUserID(c); ok {
                attrs = append(attrs, "user_id", id)
            }
            switch {
            case c.Response().Status >= 500:
                logger.Error("request", append(attrs, "err", err)...)
            case err != nil:
                logger.Warn("request", append(attrs, "err", err)...)
            default:
                logger.Info("request", attrs...)
            }
            return nil
        }
    }
}
