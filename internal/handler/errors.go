package handler

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-circulation/internal/service"
)

var codeStatus = map[service.ErrCode]int{
    service.ErrValidation:             http.StatusBadRequest,
    service.ErrInvalidPackage:         http.StatusBadRequest,
    service.ErrAccessDenied:           http.StatusForbidden,
    service.ErrNotFound:               http.StatusNotFound,
    service.ErrStateConflict:          http.StatusConflict,
    service.ErrQuotaExceeded:          http.StatusConflict,
    service.ErrOverdue:                http.StatusConflict,
    service.ErrAlreadyExists:          http.StatusConflict,
    service.ErrAlreadyWaitlisted:      http.StatusConflict,
    service.ErrInsufficientCopies:     http.StatusConflict,
    service.ErrInvalidStateTransition: http.StatusConflict,
}

// fail writes err as {"error","code"}. Errors without a code are logged and
// reported as a bare 500 so that driver messages never reach clients.
func fail(c echo.Context, err error) error {
    code := service.Code(err)
    status, ok := codeStatus[code]
    if !ok {
        slog.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
    return c.JSON(status, echo.Map{"error": err.Error(), "code": code})
}

// badRequest reports a malformed request before any service is called.
func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": service.ErrValidation})
}
