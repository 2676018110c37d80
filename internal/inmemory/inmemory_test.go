package inmemory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/iliyamo/library-circulation/internal/inmemory"
	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

var ctx = context.Background()

func newStore(t *testing.T) *inmemory.Store {
	t.Helper()
	st, err := inmemory.New()
	if err != nil {
		t.Fatal(err)
	}
	return st
}

// inTx runs fn in a transaction and commits it.
func inTx(t *testing.T, st *inmemory.Store, fn func(tx store.Tx) error) error {
	t.Helper()
	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func seedBook(t *testing.T, st *inmemory.Store, title string, copies int) model.Book {
	t.Helper()
	b := model.Book{
		Title:           title,
		Author:          "Ursula K. Le Guin",
		ISBN:            "978-0441478125",
		Genre:           "Fiction",
		MRP:             300,
		AccessLevel:     model.AccessNormal,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	if err := inTx(t, st, func(tx store.Tx) error { return tx.CreateBook(ctx, &b) }); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBooks(t *testing.T) {
	st := newStore(t)

	t.Run("creates a book and reads it back", func(t *testing.T) {
		is := is.New(t)
		b := seedBook(t, st, "The Left Hand of Darkness", 2)
		is.True(b.ID != 0)

		got, err := st.GetBook(ctx, b.ID)
		is.NoErr(err)
		is.Equal(got.Title, "The Left Hand of Darkness")
		is.Equal(got.AvailableCopies, 2)
	})

	t.Run("unknown book is not found", func(t *testing.T) {
		is := is.New(t)
		_, err := st.GetBook(ctx, 9999)
		is.True(errors.Is(err, store.ErrNotFound))
	})

	t.Run("reserve stops at zero copies", func(t *testing.T) {
		is := is.New(t)
		b := seedBook(t, st, "The Dispossessed", 1)

		is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.ReserveCopy(ctx, b.ID) }))
		err := inTx(t, st, func(tx store.Tx) error { return tx.ReserveCopy(ctx, b.ID) })
		is.True(errors.Is(err, store.ErrNoCopies))

		got, _ := st.GetBook(ctx, b.ID)
		is.Equal(got.AvailableCopies, 0)
	})

	t.Run("release stops at the total", func(t *testing.T) {
		is := is.New(t)
		b := seedBook(t, st, "Lavinia", 1)
		err := inTx(t, st, func(tx store.Tx) error { return tx.ReleaseCopy(ctx, b.ID) })
		is.True(errors.Is(err, store.ErrConflict))
	})

	t.Run("rolled back writes are invisible", func(t *testing.T) {
		is := is.New(t)
		b := seedBook(t, st, "Always Coming Home", 3)

		tx, err := st.Begin(ctx)
		is.NoErr(err)
		is.NoErr(tx.ReserveCopy(ctx, b.ID))
		inside, _ := tx.GetBook(ctx, b.ID)
		is.Equal(inside.AvailableCopies, 2) // tx sees its own write
		is.NoErr(tx.Rollback())

		got, _ := st.GetBook(ctx, b.ID)
		is.Equal(got.AvailableCopies, 3)
	})

	t.Run("book with copies out cannot be deleted", func(t *testing.T) {
		is := is.New(t)
		b := seedBook(t, st, "Tehanu", 2)
		is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.ReserveCopy(ctx, b.ID) }))

		err := inTx(t, st, func(tx store.Tx) error { return tx.DeleteIdleBook(ctx, b.ID) })
		is.True(errors.Is(err, store.ErrConflict))

		is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.ReleaseCopy(ctx, b.ID) }))
		is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.DeleteIdleBook(ctx, b.ID) }))
		_, err = st.GetBook(ctx, b.ID)
		is.True(errors.Is(err, store.ErrNotFound))
	})
}

func TestSearchBooks(t *testing.T) {
	is := is.New(t)
	st := newStore(t)
	a := seedBook(t, st, "A Wizard of Earthsea", 1)
	b := seedBook(t, st, "The Tombs of Atuan", 1)
	is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.ReserveCopy(ctx, b.ID) }))

	got, err := st.SearchBooks(ctx, model.BookFilter{Title: "earthsea"})
	is.NoErr(err)
	is.Equal(len(got), 1)
	is.Equal(got[0].ID, a.ID)

	got, err = st.SearchBooks(ctx, model.BookFilter{AvailableOnly: true})
	is.NoErr(err)
	is.Equal(len(got), 1)

	got, err = st.SearchBooks(ctx, model.BookFilter{})
	is.NoErr(err)
	is.Equal(len(got), 2)
	is.True(got[0].ID < got[1].ID) // ordered by id

	got, err = st.SearchBooks(ctx, model.BookFilter{Genre: "Fiction"})
	is.NoErr(err)
	is.Equal(len(got), 2)

	got, err = st.SearchBooks(ctx, model.BookFilter{Genre: "fiction"})
	is.NoErr(err)
	is.Equal(len(got), 0) // genre is an exact match

	stats, err := st.BookStats(ctx)
	is.NoErr(err)
	is.Equal(stats, model.BookStats{Total: 2, Normal: 2, Copies: 2, Available: 1})
}

func TestIssueRequests(t *testing.T) {
	st := newStore(t)
	b := seedBook(t, st, "Rocannon's World", 1)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("decides a pending request once", func(t *testing.T) {
		is := is.New(t)
		ir := model.IssueRequest{StudentID: 7, BookID: b.ID, Status: model.RequestPending, RequestedAt: now}
		is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.CreateIssueRequest(ctx, &ir) }))

		pending, err := st.HasPendingRequest(ctx, 7, b.ID)
		is.NoErr(err)
		is.True(pending)

		decided := ir
		decided.Status = model.RequestRejected
		decided.ProcessedAt = &now
		is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.DecideIssueRequest(ctx, &decided) }))

		decided.Status = model.RequestApproved
		err = inTx(t, st, func(tx store.Tx) error { return tx.DecideIssueRequest(ctx, &decided) })
		is.True(errors.Is(err, store.ErrStale))

		got, _ := st.GetIssueRequest(ctx, ir.ID)
		is.Equal(got.Status, model.RequestRejected)
	})

	t.Run("counts requests inside the window", func(t *testing.T) {
		is := is.New(t)
		for _, at := range []time.Time{
			time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC),
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC),
			time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		} {
			ir := model.IssueRequest{StudentID: 8, BookID: b.ID, Status: model.RequestPending, RequestedAt: at}
			is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.CreateIssueRequest(ctx, &ir) }))
		}
		n, err := st.CountRequestsBetween(ctx, 8,
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		is.NoErr(err)
		is.Equal(n, 2)

		list, err := st.ListIssueRequests(ctx, model.RequestFilter{StudentID: 8})
		is.NoErr(err)
		is.Equal(len(list), 4)
		is.True(list[0].RequestedAt.After(list[3].RequestedAt)) // newest first
	})
}

func TestLoans(t *testing.T) {
	is := is.New(t)
	st := newStore(t)
	b := seedBook(t, st, "The Word for World Is Forest", 2)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	l := model.Loan{RequestID: 1, StudentID: 3, BookID: b.ID, IssuedAt: now.AddDate(0, 0, -20), DueDate: now.AddDate(0, 0, -6)}
	is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.CreateLoan(ctx, &l) }))

	dup := model.Loan{RequestID: 1, StudentID: 3, BookID: b.ID, IssuedAt: now, DueDate: now}
	err := inTx(t, st, func(tx store.Tx) error { return tx.CreateLoan(ctx, &dup) })
	is.True(errors.Is(err, store.ErrDuplicate))

	overdue, err := st.CountOverdueLoans(ctx, 3, now)
	is.NoErr(err)
	is.Equal(overdue, 1)

	open, err := st.CountOpenLoans(ctx, b.ID)
	is.NoErr(err)
	is.Equal(open, 1)

	l.ReturnedAt = &now
	l.Fine = 60
	is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.CloseLoan(ctx, &l) }))
	err = inTx(t, st, func(tx store.Tx) error { return tx.CloseLoan(ctx, &l) })
	is.True(errors.Is(err, store.ErrStale))

	got, err := st.GetLoan(ctx, l.ID)
	is.NoErr(err)
	is.Equal(got.Fine, 60.0)
	is.True(!got.Open())
}

func TestWaitlist(t *testing.T) {
	is := is.New(t)
	st := newStore(t)
	b := seedBook(t, st, "The Lathe of Heaven", 1)
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	for i, student := range []uint64{11, 12, 13} {
		e := model.WaitlistEntry{BookID: b.ID, StudentID: student, JoinedAt: base.Add(time.Duration(i) * time.Minute)}
		is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.AddWaitlistEntry(ctx, &e) }))
	}

	again := model.WaitlistEntry{BookID: b.ID, StudentID: 12, JoinedAt: base.Add(time.Hour)}
	err := inTx(t, st, func(tx store.Tx) error { return tx.AddWaitlistEntry(ctx, &again) })
	is.True(errors.Is(err, store.ErrDuplicate))

	is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.RemoveWaitlistEntry(ctx, b.ID, 12) }))
	err = inTx(t, st, func(tx store.Tx) error { return tx.RemoveWaitlistEntry(ctx, b.ID, 12) })
	is.True(errors.Is(err, store.ErrNotFound))

	var head model.WaitlistEntry
	is.NoErr(inTx(t, st, func(tx store.Tx) error {
		var err error
		head, err = tx.PopWaitlistHead(ctx, b.ID)
		return err
	}))
	is.Equal(head.StudentID, uint64(11))

	left, err := st.ListWaitlist(ctx, b.ID)
	is.NoErr(err)
	is.Equal(len(left), 1)
	is.Equal(left[0].StudentID, uint64(13))
}

func TestMemberships(t *testing.T) {
	is := is.New(t)
	st := newStore(t)

	_, err := st.GetMembership(ctx, 5)
	is.True(errors.Is(err, store.ErrNotFound))

	end := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	m := model.Membership{UserID: 5, Type: model.MembershipPremium, Package: model.PackageOneMonth, SubscriptionEnd: &end}
	is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.SaveMembership(ctx, &m) }))

	m.Package = model.PackageOneYear
	is.NoErr(inTx(t, st, func(tx store.Tx) error { return tx.SaveMembership(ctx, &m) }))

	got, err := st.GetMembership(ctx, 5)
	is.NoErr(err)
	is.Equal(got.Package, model.PackageOneYear)

	tx, err := st.Begin(ctx)
	is.NoErr(err)
	defer tx.Rollback()
	locked, err := tx.LockMembership(ctx, 5)
	is.NoErr(err)
	is.Equal(locked.Package, model.PackageOneYear)
	_, err = tx.LockMembership(ctx, 6)
	is.True(errors.Is(err, store.ErrNotFound))
}

func TestAccounts(t *testing.T) {
	is := is.New(t)
	st := newStore(t)

	u := model.User{Email: " Reader@Example.com ", PasswordHash: "x", Role: model.RoleStudent, IsActive: true}
	is.NoErr(st.CreateUser(ctx, &u))
	is.Equal(u.Email, "reader@example.com")

	dup := model.User{Email: "READER@example.com", PasswordHash: "y", Role: model.RoleStudent}
	is.True(errors.Is(st.CreateUser(ctx, &dup), store.ErrDuplicate))

	got, err := st.GetUserByEmail(ctx, "reader@example.com")
	is.NoErr(err)
	is.Equal(got.ID, u.ID)

	is.NoErr(st.StoreRefresh(ctx, u.ID, "h1", time.Now().Add(time.Hour)))
	is.NoErr(st.StoreRefresh(ctx, u.ID, "h2", time.Now().Add(-time.Hour)))

	owner, err := st.ValidateRefresh(ctx, "h1")
	is.NoErr(err)
	is.Equal(owner, u.ID)

	_, err = st.ValidateRefresh(ctx, "h2") // expired
	is.True(errors.Is(err, store.ErrNotFound))

	is.NoErr(st.RevokeAllForUser(ctx, u.ID))
	_, err = st.ValidateRefresh(ctx, "h1")
	is.True(errors.Is(err, store.ErrNotFound))
}
