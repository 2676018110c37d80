package inmemory

import (
	"context"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

// LockBook and LockMembership are plain reads here: the write txn is
// already exclusive.
func (t *Tx) LockBook(ctx context.Context, id uint64) (model.Book, error) {
	return first[model.Book](t.txn, tableBooks, "id", id)
}

func (t *Tx) LockMembership(ctx context.Context, userID uint64) (model.Membership, error) {
	return first[model.Membership](t.txn, tableMemberships, "id", userID)
}

func (t *Tx) CreateBook(ctx context.Context, b *model.Book) error {
	now := t.now()
	b.ID = t.seq.books.Add(1)
	b.CreatedAt, b.UpdatedAt = now, now
	return t.txn.Insert(tableBooks, *b)
}

func (t *Tx) UpdateBook(ctx context.Context, b *model.Book) error {
	cur, err := first[model.Book](t.txn, tableBooks, "id", b.ID)
	if err != nil {
		return err
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = t.now()
	return t.txn.Insert(tableBooks, *b)
}

// DeleteIdleBook also drops the requests, loans and waitlist entries of
// the book, mirroring the ON DELETE CASCADE keys of the MySQL schema.
func (t *Tx) DeleteIdleBook(ctx context.Context, id uint64) error {
	b, err := first[model.Book](t.txn, tableBooks, "id", id)
	if err != nil {
		return err
	}
	if b.AvailableCopies != b.TotalCopies {
		return store.ErrConflict
	}
	if err := t.txn.Delete(tableBooks, b); err != nil {
		return err
	}
	for _, table := range []string{tableRequests, tableLoans, tableWaitlist} {
		if _, err := t.txn.DeleteAll(table, "book_id", id); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) ReserveCopy(ctx context.Context, bookID uint64) error {
	b, err := first[model.Book](t.txn, tableBooks, "id", bookID)
	if err != nil {
		return err
	}
	if b.AvailableCopies <= 0 {
		return store.ErrNoCopies
	}
	b.AvailableCopies--
	b.UpdatedAt = t.now()
	return t.txn.Insert(tableBooks, b)
}

func (t *Tx) ReleaseCopy(ctx context.Context, bookID uint64) error {
	b, err := first[model.Book](t.txn, tableBooks, "id", bookID)
	if err != nil {
		return err
	}
	if b.AvailableCopies >= b.TotalCopies {
		return store.ErrConflict
	}
	b.AvailableCopies++
	b.UpdatedAt = t.now()
	return t.txn.Insert(tableBooks, b)
}

func (t *Tx) CreateIssueRequest(ctx context.Context, r *model.IssueRequest) error {
	r.ID = t.seq.requests.Add(1)
	return t.txn.Insert(tableRequests, *r)
}

func (t *Tx) DecideIssueRequest(ctx context.Context, r *model.IssueRequest) error {
	cur, err := first[model.IssueRequest](t.txn, tableRequests, "id", r.ID)
	if err != nil {
		return err
	}
	if cur.Status != model.RequestPending {
		return store.ErrStale
	}
	cur.Status = r.Status
	cur.ProcessedAt = r.ProcessedAt
	cur.ProcessedByID = r.ProcessedByID
	cur.Reason = r.Reason
	cur.ExpectedDueDate = r.ExpectedDueDate
	cur.IssuedRecordID = r.IssuedRecordID
	return t.txn.Insert(tableRequests, cur)
}

func (t *Tx) CreateLoan(ctx context.Context, l *model.Loan) error {
	if _, err := first[model.Loan](t.txn, tableLoans, "request_id", l.RequestID); err == nil {
		return store.ErrDuplicate
	}
	l.ID = t.seq.loans.Add(1)
	return t.txn.Insert(tableLoans, *l)
}

func (t *Tx) CloseLoan(ctx context.Context, l *model.Loan) error {
	cur, err := first[model.Loan](t.txn, tableLoans, "id", l.ID)
	if err != nil {
		return err
	}
	if !cur.Open() {
		return store.ErrStale
	}
	cur.ReturnedAt = l.ReturnedAt
	cur.Fine = l.Fine
	return t.txn.Insert(tableLoans, cur)
}

func (t *Tx) SaveMembership(ctx context.Context, m *model.Membership) error {
	return t.txn.Insert(tableMemberships, *m)
}

func (t *Tx) AddWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	if _, err := first[model.WaitlistEntry](t.txn, tableWaitlist, "id", e.BookID, e.StudentID); err == nil {
		return store.ErrDuplicate
	}
	e.ID = t.seq.waitlist.Add(1)
	return t.txn.Insert(tableWaitlist, *e)
}

func (t *Tx) RemoveWaitlistEntry(ctx context.Context, bookID, studentID uint64) error {
	e, err := first[model.WaitlistEntry](t.txn, tableWaitlist, "id", bookID, studentID)
	if err != nil {
		return err
	}
	return t.txn.Delete(tableWaitlist, e)
}

func (t *Tx) PopWaitlistHead(ctx context.Context, bookID uint64) (model.WaitlistEntry, error) {
	entries, err := queue(t.txn, bookID)
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	if len(entries) == 0 {
		return model.WaitlistEntry{}, store.ErrNotFound
	}
	head := entries[0]
	if err := t.txn.Delete(tableWaitlist, head); err != nil {
		return model.WaitlistEntry{}, err
	}
	return head, nil
}
