package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

// WaitlistRepo keeps the per-book FIFO queue.
type WaitlistRepo struct {
	q sqlx.ExtContext
}

func NewWaitlistRepo(q sqlx.ExtContext) *WaitlistRepo { return &WaitlistRepo{q: q} }

// ListWaitlist returns the queue head first.
func (r *WaitlistRepo) ListWaitlist(ctx context.Context, bookID uint64) ([]model.WaitlistEntry, error) {
	out := []model.WaitlistEntry{}
	err := sqlx.SelectContext(ctx, r.q, &out,
		`SELECT id, book_id, student_id, joined_at FROM waitlist_entries
		 WHERE book_id = ? ORDER BY joined_at, id`, bookID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddWaitlistEntry appends the student to the tail.  The unique key on
// (book_id, student_id) turns a second join into store.ErrDuplicate.
func (r *WaitlistRepo) AddWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO waitlist_entries (book_id, student_id, joined_at) VALUES (?, ?, ?)`,
		e.BookID, e.StudentID, e.JoinedAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return store.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (r *WaitlistRepo) RemoveWaitlistEntry(ctx context.Context, bookID, studentID uint64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE book_id = ? AND student_id = ?`, bookID, studentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PopWaitlistHead locks the head row before deleting it so two returns of
// the same title never promote the same student.
func (r *WaitlistRepo) PopWaitlistHead(ctx context.Context, bookID uint64) (model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := sqlx.GetContext(ctx, r.q, &e,
		`SELECT id, book_id, student_id, joined_at FROM waitlist_entries
		 WHERE book_id = ? ORDER BY joined_at, id LIMIT 1 FOR UPDATE`, bookID)
	if err != nil {
		return e, notFound(err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, e.ID); err != nil {
		return e, err
	}
	return e, nil
}
