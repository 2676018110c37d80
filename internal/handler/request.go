package handler

import (
    "context"
    "errors"
    "reflect"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-circulation/internal/middleware"
)

const requestTimeout = 5 * time.Second

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
    v *validator.Validate
}

// NewValidator reports fields by their JSON names.
func NewValidator() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
        if name == "-" {
            return ""
        }
        return name
    })
    return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
    return cv.v.Struct(i)
}

// bind decodes and validates the body into dst. The returned message is
// suitable for a 400 response.
func bind(c echo.Context, dst interface{}) (string, bool) {
    if err := c.Bind(dst); err != nil {
        return "invalid body", false
    }
    if err := c.Validate(dst); err != nil {
        return describe(err), false
    }
    return "", true
}

func describe(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err.Error()
    }
    msgs := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        field := fe.Field()
        switch fe.Tag() {
        case "required":
            msgs = append(msgs, field+" is required")
        case "min", "gte":
            msgs = append(msgs, field+" must be at least "+fe.Param())
        case "max", "lte":
            msgs = append(msgs, field+" must be at most "+fe.Param())
        case "oneof":
            msgs = append(msgs, field+" must be one of "+fe.Param())
        case "email":
            msgs = append(msgs, field+" must be a valid email")
        default:
            msgs = append(msgs, field+" is invalid")
        }
    }
    return strings.Join(msgs, "; ")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// caller returns the authenticated user. Routes calling it sit behind JWTAuth.
func caller(c echo.Context) (uint64, string) {
    id, _ := middleware.CurrentUserID(c)
    return id, middleware.CurrentRole(c)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}
