package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-circulation/internal/model"
    "github.com/iliyamo/library-circulation/internal/service"
)

// LoanHandler serves issued-book records and returns.
type LoanHandler struct {
    Loans *service.Loans
}

func NewLoanHandler(l *service.Loans) *LoanHandler {
    return &LoanHandler{Loans: l}
}

// List: GET /api/issued-books[?open=true]. Students only see their own loans.
func (h *LoanHandler) List(c echo.Context) error {
    uid, role := caller(c)
    var f model.LoanFilter
    if role == model.RoleStudent {
        f.StudentID = uid
    }
    if raw := c.QueryParam("open"); raw != "" {
        open, err := strconv.ParseBool(raw)
        if err != nil {
            return badRequest(c, "open must be true or false")
        }
        f.OpenOnly = open
    }

    ctx, cancel := reqCtx(c)
    defer cancel()
    loans, err := h.Loans.List(ctx, f)
    if err != nil {
        return fail(c, err)
    }
    if loans == nil {
        loans = []model.Loan{}
    }
    return c.JSON(http.StatusOK, echo.Map{"issuedBooks": loans, "count": len(loans)})
}

// Return: POST /api/issued-books/:id/return
func (h *LoanHandler) Return(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid issued record id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    l, err := h.Loans.Return(ctx, id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, l)
}
