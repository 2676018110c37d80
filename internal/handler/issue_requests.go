package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-circulation/internal/model"
    "github.com/iliyamo/library-circulation/internal/service"
)

// IssueRequestHandler exposes the request workflow and bulk approval.
type IssueRequestHandler struct {
    Requests *service.IssueRequests
    Bulk     *service.BulkCoordinator
}

func NewIssueRequestHandler(reqs *service.IssueRequests, bulk *service.BulkCoordinator) *IssueRequestHandler {
    if reqs == nil || bulk == nil {
        panic("nil service passed to NewIssueRequestHandler")
    }
    return &IssueRequestHandler{Requests: reqs, Bulk: bulk}
}

type createIssueReq struct {
    BookID uint64 `json:"bookId" validate:"required"`
}

type approveReq struct {
    // RFC 3339 timestamp or a plain YYYY-MM-DD date (end of that UTC day).
    ExpectedDueDate string `json:"expectedDueDate"`
}

type rejectReq struct {
    Reason string `json:"reason" validate:"max=512"`
}

type bulkApproveReq struct {
    RequestIDs []uint64 `json:"requestIds"`
    UserIDs    []uint64 `json:"userIds"` // accepted for older clients
}

// Create: POST /api/issue-requests. 201 when filed, 202 when the student
// was queued on the waitlist instead.
func (h *IssueRequestHandler) Create(c echo.Context) error {
    var req createIssueReq
    if msg, ok := bind(c, &req); !ok {
        return badRequest(c, msg)
    }
    uid, _ := caller(c)

    ctx, cancel := reqCtx(c)
    defer cancel()
    res, err := h.Requests.Create(ctx, uid, req.BookID)
    if err != nil {
        return fail(c, err)
    }
    if res.Waitlisted {
        return c.JSON(http.StatusAccepted, echo.Map{
            "waitlisted": true,
            "position":   res.Position,
            "message":    "no copies available; added to waitlist",
        })
    }
    return c.JSON(http.StatusCreated, res.Request)
}

// List: GET /api/issue-requests?status=. Students only see their own.
func (h *IssueRequestHandler) List(c echo.Context) error {
    uid, role := caller(c)
    f := model.RequestFilter{Status: model.RequestStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))}
    if role == model.RoleStudent {
        f.StudentID = uid
    }

    ctx, cancel := reqCtx(c)
    defer cancel()
    items, err := h.Requests.List(ctx, f)
    if err != nil {
        return fail(c, err)
    }
    if items == nil {
        items = []model.IssueRequest{}
    }
    return c.JSON(http.StatusOK, echo.Map{"requests": items, "count": len(items)})
}

// Approve: PATCH /api/issue-requests/:id/approve
func (h *IssueRequestHandler) Approve(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid request id")
    }
    var req approveReq
    if c.Request().ContentLength != 0 {
        if msg, ok := bind(c, &req); !ok {
            return badRequest(c, msg)
        }
    }
    var due *time.Time
    if s := strings.TrimSpace(req.ExpectedDueDate); s != "" {
        t, err := parseDue(s)
        if err != nil {
            return badRequest(c, "expectedDueDate must be RFC 3339 or YYYY-MM-DD")
        }
        due = &t
    }
    uid, _ := caller(c)

    ctx, cancel := reqCtx(c)
    defer cancel()
    ir, err := h.Requests.Approve(ctx, id, uid, due)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, ir)
}

// Reject: PATCH /api/issue-requests/:id/reject
func (h *IssueRequestHandler) Reject(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid request id")
    }
    var req rejectReq
    if c.Request().ContentLength != 0 {
        if msg, ok := bind(c, &req); !ok {
            return badRequest(c, msg)
        }
    }
    uid, _ := caller(c)

    ctx, cancel := reqCtx(c)
    defer cancel()
    ir, err := h.Requests.Reject(ctx, id, uid, req.Reason)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, ir)
}

// BulkApprove: POST /api/admin/bulk-approve. Always 200; per-request
// failures only show up in the rejected count.
func (h *IssueRequestHandler) BulkApprove(c echo.Context) error {
    var req bulkApproveReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ids := req.RequestIDs
    if len(ids) == 0 {
        ids = req.UserIDs
    }
    uid, _ := caller(c)

    // Approvals outlive a client disconnect; each one is its own transaction.
    res := h.Bulk.BulkApprove(context.WithoutCancel(c.Request().Context()), uid, ids)
    return c.JSON(http.StatusOK, res)
}

func parseDue(s string) (time.Time, error) {
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t.UTC(), nil
    }
    d, err := time.Parse(time.DateOnly, s)
    if err != nil {
        return time.Time{}, err
    }
    return d.Add(24*time.Hour - time.Second), nil
}
