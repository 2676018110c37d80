package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-circulation/internal/handler"
	"github.com/iliyamo/library-circulation/internal/middleware"
	"github.com/iliyamo/library-circulation/internal/model"
)

// RegisterCirculation registers issue requests, issued books and the admin
// endpoints. Listing is open to every role; handlers scope students to
// their own records.
func RegisterCirculation(e *echo.Echo, reqs *handler.IssueRequestHandler, loans *handler.LoanHandler, books *handler.BookHandler, m Middlewares) {
	g := protected(e, "/api", m)

	g.POST("/issue-requests", reqs.Create, middleware.RequireRole(model.RoleStudent))
	g.GET("/issue-requests", reqs.List)
	g.PATCH("/issue-requests/:id/approve", reqs.Approve, staff)
	g.PATCH("/issue-requests/:id/reject", reqs.Reject, staff)

	g.GET("/issued-books", loans.List)
	g.POST("/issued-books/:id/return", loans.Return, staff)

	admin := g.Group("/admin")
	admin.GET("/book-stats", books.Stats, m.chain(staff, m.Cache)...)
	admin.POST("/bulk-approve", reqs.BulkApprove, middleware.RequireRole(model.RoleAdmin))
}
