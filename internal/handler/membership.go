package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-circulation/internal/service"
)

// MembershipHandler serves a student's subscription and monthly quota.
type MembershipHandler struct {
    Memberships *service.Memberships
    Quota       *service.Quota
}

func NewMembershipHandler(m *service.Memberships, q *service.Quota) *MembershipHandler {
    return &MembershipHandler{Memberships: m, Quota: q}
}

type packageReq struct {
    Package string `json:"package"`
}

func (h *MembershipHandler) Status(c echo.Context) error {
    uid, _ := caller(c)
    ctx, cancel := reqCtx(c)
    defer cancel()
    st, err := h.Memberships.Status(ctx, uid)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, st)
}

func (h *MembershipHandler) Activate(c echo.Context) error {
    return h.purchase(c, h.Memberships.Activate)
}

func (h *MembershipHandler) Extend(c echo.Context) error {
    return h.purchase(c, h.Memberships.Extend)
}

func (h *MembershipHandler) purchase(c echo.Context, op func(ctx context.Context, userID uint64, pkg string) (service.MembershipStatus, error)) error {
    var req packageReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    uid, _ := caller(c)
    ctx, cancel := reqCtx(c)
    defer cancel()
    // An empty package is reported by the service as INVALID_PACKAGE.
    st, err := op(ctx, uid, req.Package)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, st)
}

// MonthlyRequestCount: GET /api/library/monthly-request-count
func (h *MembershipHandler) MonthlyRequestCount(c echo.Context) error {
    uid, _ := caller(c)
    ctx, cancel := reqCtx(c)
    defer cancel()
    v, err := h.Quota.Remaining(ctx, uid)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, v)
}
