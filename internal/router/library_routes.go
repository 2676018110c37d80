package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-circulation/internal/handler"
	"github.com/iliyamo/library-circulation/internal/middleware"
	"github.com/iliyamo/library-circulation/internal/model"
)

var staff = middleware.RequireRole(model.RoleLibrarian, model.RoleAdmin)

// RegisterLibrary registers the catalogue, membership, quota and waitlist
// endpoints under /api/library. Search is open to every signed-in role;
// catalogue writes need LIBRARIAN or ADMIN; the rest is for students.
func RegisterLibrary(e *echo.Echo, books *handler.BookHandler, members *handler.MembershipHandler, wl *handler.WaitlistHandler, m Middlewares) {
	g := protected(e, "/api/library", m)
	student := middleware.RequireRole(model.RoleStudent)

	g.GET("/books", books.Search, m.chain(m.Cache)...)
	g.GET("/books/:id", books.Get)
	g.POST("/books", books.Create, staff)
	g.PUT("/books/:id", books.Update, staff)
	g.DELETE("/books/:id", books.Delete, staff)

	g.GET("/monthly-request-count", members.MonthlyRequestCount, student)
	g.GET("/subscription", members.Status, student)
	g.POST("/subscription/activate", members.Activate, student)
	g.POST("/subscription/extend", members.Extend, student)

	g.POST("/waitlist", wl.Join, student)
	g.GET("/waitlist/:bookId/position", wl.Position, student)
	g.DELETE("/waitlist/:bookId", wl.Leave, student)
}
