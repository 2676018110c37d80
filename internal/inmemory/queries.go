package inmemory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

// reader implements store.Queries over whichever txn it is handed: a
// fresh snapshot for Store, the open write txn for Tx.
type reader struct {
	txn func() (*memdb.Txn, func())
}

// first loads one object by index or returns store.ErrNotFound.
func first[T any](txn *memdb.Txn, table, index string, args ...interface{}) (T, error) {
	var zero T
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, store.ErrNotFound
	}
	return raw.(T), nil
}

// all collects every object matching the index lookup.
func all[T any](txn *memdb.Txn, table, index string, args ...interface{}) ([]T, error) {
	it, err := txn.Get(table, index, args...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj.(T))
	}
	return out, nil
}

func (r reader) GetBook(ctx context.Context, id uint64) (model.Book, error) {
	txn, done := r.txn()
	defer done()
	return first[model.Book](txn, tableBooks, "id", id)
}

func (r reader) SearchBooks(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	txn, done := r.txn()
	defer done()
	books, err := all[model.Book](txn, tableBooks, "id")
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(f.Title))
	out := []model.Book{}
	for _, b := range books {
		if term != "" &&
			!strings.Contains(strings.ToLower(b.Title), term) &&
			!strings.Contains(strings.ToLower(b.Author), term) &&
			!strings.Contains(strings.ToLower(b.ISBN), term) {
			continue
		}
		if f.Genre != "" && b.Genre != f.Genre {
			continue
		}
		if f.AccessLevel != "" && b.AccessLevel != f.AccessLevel {
			continue
		}
		if f.AvailableOnly && b.AvailableCopies == 0 {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r reader) BookStats(ctx context.Context) (model.BookStats, error) {
	txn, done := r.txn()
	defer done()
	books, err := all[model.Book](txn, tableBooks, "id")
	if err != nil {
		return model.BookStats{}, err
	}
	var st model.BookStats
	for _, b := range books {
		st.Total++
		if b.AccessLevel == model.AccessPremium {
			st.Premium++
		} else {
			st.Normal++
		}
		st.Copies += b.TotalCopies
		st.Available += b.AvailableCopies
	}
	return st, nil
}

func (r reader) GetIssueRequest(ctx context.Context, id uint64) (model.IssueRequest, error) {
	txn, done := r.txn()
	defer done()
	return first[model.IssueRequest](txn, tableRequests, "id", id)
}

func (r reader) ListIssueRequests(ctx context.Context, f model.RequestFilter) ([]model.IssueRequest, error) {
	txn, done := r.txn()
	defer done()
	var (
		reqs []model.IssueRequest
		err  error
	)
	if f.StudentID != 0 {
		reqs, err = all[model.IssueRequest](txn, tableRequests, "student_id", f.StudentID)
	} else {
		reqs, err = all[model.IssueRequest](txn, tableRequests, "id")
	}
	if err != nil {
		return nil, err
	}
	out := reqs[:0]
	for _, ir := range reqs {
		if f.Status != "" && ir.Status != f.Status {
			continue
		}
		out = append(out, ir)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out, nil
}

func (r reader) CountRequestsBetween(ctx context.Context, studentID uint64, from, to time.Time) (int, error) {
	txn, done := r.txn()
	defer done()
	reqs, err := all[model.IssueRequest](txn, tableRequests, "student_id", studentID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, ir := range reqs {
		if !ir.RequestedAt.Before(from) && ir.RequestedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r reader) HasPendingRequest(ctx context.Context, studentID, bookID uint64) (bool, error) {
	txn, done := r.txn()
	defer done()
	reqs, err := all[model.IssueRequest](txn, tableRequests, "student_id", studentID)
	if err != nil {
		return false, err
	}
	for _, ir := range reqs {
		if ir.BookID == bookID && ir.Status == model.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (r reader) GetMembership(ctx context.Context, userID uint64) (model.Membership, error) {
	txn, done := r.txn()
	defer done()
	return first[model.Membership](txn, tableMemberships, "id", userID)
}

func (r reader) ListWaitlist(ctx context.Context, bookID uint64) ([]model.WaitlistEntry, error) {
	txn, done := r.txn()
	defer done()
	return queue(txn, bookID)
}

// queue returns the waitlist of a book, head first.
func queue(txn *memdb.Txn, bookID uint64) ([]model.WaitlistEntry, error) {
	entries, err := all[model.WaitlistEntry](txn, tableWaitlist, "book_id", bookID)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })
	return entries, nil
}

func (r reader) GetLoan(ctx context.Context, id uint64) (model.Loan, error) {
	txn, done := r.txn()
	defer done()
	return first[model.Loan](txn, tableLoans, "id", id)
}

func (r reader) ListLoans(ctx context.Context, f model.LoanFilter) ([]model.Loan, error) {
	txn, done := r.txn()
	defer done()
	var (
		loans []model.Loan
		err   error
	)
	if f.StudentID != 0 {
		loans, err = all[model.Loan](txn, tableLoans, "student_id", f.StudentID)
	} else {
		loans, err = all[model.Loan](txn, tableLoans, "id")
	}
	if err != nil {
		return nil, err
	}
	out := loans[:0]
	for _, l := range loans {
		if f.OpenOnly && !l.Open() {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

func (r reader) CountOverdueLoans(ctx context.Context, studentID uint64, now time.Time) (int, error) {
	txn, done := r.txn()
	defer done()
	loans, err := all[model.Loan](txn, tableLoans, "student_id", studentID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range loans {
		if l.Open() && l.DueDate.Before(now) {
			n++
		}
	}
	return n, nil
}

func (r reader) CountOpenLoans(ctx context.Context, bookID uint64) (int, error) {
	txn, done := r.txn()
	defer done()
	loans, err := all[model.Loan](txn, tableLoans, "book_id", bookID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range loans {
		if l.Open() {
			n++
		}
	}
	return n, nil
}
