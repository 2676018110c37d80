package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-circulation/internal/inmemory"
	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/service"
)

var ctx = context.Background()

// day0 is a mid-month instant so that day arithmetic stays inside one
// calendar month unless a test means to cross it.
var day0 = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	svc   *service.Services
	store *inmemory.Store
	clock *clock
}

func newEnv(t *testing.T, pub service.Publisher) *env {
	t.Helper()
	st, err := inmemory.New()
	require.NoError(t, err)
	c := &clock{now: day0}
	svc := service.New(st, pub, service.Options{
		Now:    c.Now,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &env{svc: svc, store: st, clock: c}
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func price(v float64) *float64 { return &v }

func (e *env) book(t *testing.T, title string, copies int, level model.AccessLevel) model.Book {
	t.Helper()
	b, err := e.svc.Inventory.Create(ctx, service.BookInput{
		Title:       title,
		Author:      "Octavia E. Butler",
		ISBN:        "978-0807083697",
		Genre:       "Science Fiction",
		MRP:         price(250),
		AccessLevel: level,
		TotalCopies: copies,
	})
	require.NoError(t, err)
	return b
}

func (e *env) premium(t *testing.T, studentID uint64) {
	t.Helper()
	_, err := e.svc.Memberships.Activate(ctx, studentID, string(model.PackageOneYear))
	require.NoError(t, err)
}

func (e *env) request(t *testing.T, studentID, bookID uint64) model.IssueRequest {
	t.Helper()
	res, err := e.svc.IssueRequests.Create(ctx, studentID, bookID)
	require.NoError(t, err)
	require.False(t, res.Waitlisted)
	require.NotNil(t, res.Request)
	return *res.Request
}

func (e *env) available(t *testing.T, bookID uint64) int {
	t.Helper()
	b, err := e.store.GetBook(ctx, bookID)
	require.NoError(t, err)
	return b.AvailableCopies
}

func requireCode(t *testing.T, err error, code service.ErrCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, service.Code(err), "err: %v", err)
}
