package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-circulation/internal/model"
    "github.com/iliyamo/library-circulation/internal/service"
)

// BookHandler serves the catalogue endpoints.
type BookHandler struct {
    Inventory *service.Inventory
}

func NewBookHandler(inv *service.Inventory) *BookHandler {
    if inv == nil {
        panic("nil inventory passed to NewBookHandler")
    }
    return &BookHandler{Inventory: inv}
}

type createBookReq struct {
    Title       string   `json:"title" validate:"required,max=255"`
    Author      string   `json:"author" validate:"required,max=255"`
    ISBN        string   `json:"isbn" validate:"max=32"`
    Genre       string   `json:"genre" validate:"max=100"`
    Publisher   string   `json:"publisher" validate:"max=255"`
    MRP         *float64 `json:"mrp" validate:"required,gte=0"`
    AccessLevel string   `json:"accessLevel" validate:"omitempty,oneof=NORMAL PREMIUM"`
    TotalCopies int      `json:"totalCopies" validate:"required,min=1"`
}

type updateBookReq struct {
    Title       *string  `json:"title" validate:"omitempty,min=1,max=255"`
    Author      *string  `json:"author" validate:"omitempty,min=1,max=255"`
    ISBN        *string  `json:"isbn" validate:"omitempty,max=32"`
    Genre       *string  `json:"genre" validate:"omitempty,max=100"`
    Publisher   *string  `json:"publisher" validate:"omitempty,max=255"`
    MRP         *float64 `json:"mrp" validate:"omitempty,gte=0"`
    AccessLevel *string  `json:"accessLevel" validate:"omitempty,oneof=NORMAL PREMIUM"`
    TotalCopies *int     `json:"totalCopies" validate:"omitempty,min=1"`
}

// Search: GET /api/library/books?title=&genre=&accessLevel=&available=
func (h *BookHandler) Search(c echo.Context) error {
    f := model.BookFilter{
        Title: strings.TrimSpace(c.QueryParam("title")),
        Genre: strings.TrimSpace(c.QueryParam("genre")),
    }
    if lvl := strings.ToUpper(strings.TrimSpace(c.QueryParam("accessLevel"))); lvl != "" {
        f.AccessLevel = model.AccessLevel(lvl)
        if !f.AccessLevel.Valid() {
            return badRequest(c, "accessLevel must be NORMAL or PREMIUM")
        }
    }
    if raw := c.QueryParam("available"); raw != "" {
        avail, err := strconv.ParseBool(raw)
        if err != nil {
            return badRequest(c, "available must be true or false")
        }
        f.AvailableOnly = avail
    }

    ctx, cancel := reqCtx(c)
    defer cancel()
    books, err := h.Inventory.Search(ctx, f)
    if err != nil {
        return fail(c, err)
    }
    if books == nil {
        books = []model.Book{}
    }
    return c.JSON(http.StatusOK, echo.Map{"books": books, "count": len(books)})
}

func (h *BookHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid book id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    b, err := h.Inventory.Get(ctx, id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Create: POST /api/library/books
func (h *BookHandler) Create(c echo.Context) error {
    var req createBookReq
    if msg, ok := bind(c, &req); !ok {
        return badRequest(c, msg)
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    b, err := h.Inventory.Create(ctx, service.BookInput{
        Title:       req.Title,
        Author:      req.Author,
        ISBN:        req.ISBN,
        Genre:       req.Genre,
        Publisher:   req.Publisher,
        MRP:         req.MRP,
        AccessLevel: model.AccessLevel(req.AccessLevel),
        TotalCopies: req.TotalCopies,
    })
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Update: PUT /api/library/books/:id[?preserveLoans=true]
func (h *BookHandler) Update(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid book id")
    }
    var req updateBookReq
    if msg, ok := bind(c, &req); !ok {
        return badRequest(c, msg)
    }
    preserve := false
    if raw := c.QueryParam("preserveLoans"); raw != "" {
        v, err := strconv.ParseBool(raw)
        if err != nil {
            return badRequest(c, "preserveLoans must be true or false")
        }
        preserve = v
    }
    patch := service.BookPatch{
        Title:         req.Title,
        Author:        req.Author,
        ISBN:          req.ISBN,
        Genre:         req.Genre,
        Publisher:     req.Publisher,
        MRP:           req.MRP,
        TotalCopies:   req.TotalCopies,
        PreserveLoans: preserve,
    }
    if req.AccessLevel != nil {
        lvl := model.AccessLevel(*req.AccessLevel)
        patch.AccessLevel = &lvl
    }

    ctx, cancel := reqCtx(c)
    defer cancel()
    b, err := h.Inventory.Update(ctx, id, patch)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Delete: DELETE /api/library/books/:id
func (h *BookHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid book id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Inventory.Delete(ctx, id); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Stats: GET /api/admin/book-stats
func (h *BookHandler) Stats(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    st, err := h.Inventory.Stats(ctx)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, st)
}
