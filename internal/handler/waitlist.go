package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-circulation/internal/service"
)

// WaitlistHandler lets students queue for books with no copy on the shelf.
type WaitlistHandler struct {
    Waitlist *service.Waitlist
}

func NewWaitlistHandler(w *service.Waitlist) *WaitlistHandler {
    return &WaitlistHandler{Waitlist: w}
}

type joinWaitlistReq struct {
    BookID uint64 `json:"bookId" validate:"required"`
}

// Join: POST /api/library/waitlist
func (h *WaitlistHandler) Join(c echo.Context) error {
    var req joinWaitlistReq
    if msg, ok := bind(c, &req); !ok {
        return badRequest(c, msg)
    }
    uid, _ := caller(c)
    ctx, cancel := reqCtx(c)
    defer cancel()
    pos, err := h.Waitlist.Join(ctx, req.BookID, uid)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"bookId": req.BookID, "position": pos})
}

// Position: GET /api/library/waitlist/:bookId/position
func (h *WaitlistHandler) Position(c echo.Context) error {
    bookID, ok := pathID(c, "bookId")
    if !ok {
        return badRequest(c, "invalid book id")
    }
    uid, _ := caller(c)
    ctx, cancel := reqCtx(c)
    defer cancel()
    pos, err := h.Waitlist.Position(ctx, bookID, uid)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookId": bookID, "position": pos})
}

// Leave: DELETE /api/library/waitlist/:bookId
func (h *WaitlistHandler) Leave(c echo.Context) error {
    bookID, ok := pathID(c, "bookId")
    if !ok {
        return badRequest(c, "invalid book id")
    }
    uid, _ := caller(c)
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Waitlist.Leave(ctx, bookID, uid); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
