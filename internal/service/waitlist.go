package service

import (
	"context"
	"errors"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

// Waitlist keeps a FIFO queue per book for students who found no copy on
// the shelf.
type Waitlist struct {
	deps
	members *Memberships
}

// Join appends the student to the queue of an exhausted book and returns
// the 1-indexed position. PREMIUM books only queue premium students.
func (s *Waitlist) Join(ctx context.Context, bookID, studentID uint64) (int, error) {
	var pos int
	err := s.withTx(ctx, func(tx store.Tx) error {
		book, err := tx.GetBook(ctx, bookID)
		if errors.Is(err, store.ErrNotFound) {
			return makeErr(ErrNotFound, "book %d not found", bookID)
		}
		if err != nil {
			return err
		}
		if book.AccessLevel == model.AccessPremium {
			premium, err := s.members.isPremium(ctx, tx, studentID)
			if err != nil {
				return err
			}
			if !premium {
				return makeErr(ErrAccessDenied, "book %d requires a premium membership", bookID)
			}
		}
		pos, err = s.join(ctx, tx, book, studentID)
		return err
	})
	return pos, err
}

// join is shared with IssueRequests.Create, which already holds tx.
func (s *Waitlist) join(ctx context.Context, tx store.Tx, book model.Book, studentID uint64) (int, error) {
	queue, err := tx.ListWaitlist(ctx, book.ID)
	if err != nil {
		return 0, err
	}
	if rank(queue, studentID) > 0 {
		return 0, makeErr(ErrAlreadyWaitlisted, "already waitlisted for book %d", book.ID)
	}
	if book.AvailableCopies > 0 {
		return 0, makeErr(ErrStateConflict, "book %d has copies available; request it instead", book.ID)
	}
	e := model.WaitlistEntry{BookID: book.ID, StudentID: studentID, JoinedAt: s.now()}
	if err := tx.AddWaitlistEntry(ctx, &e); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return 0, makeErr(ErrAlreadyWaitlisted, "already waitlisted for book %d", book.ID)
		}
		return 0, err
	}
	queue, err = tx.ListWaitlist(ctx, book.ID)
	if err != nil {
		return 0, err
	}
	return rank(queue, studentID), nil
}

// Position returns the 1-indexed rank of the student in the book's queue.
func (s *Waitlist) Position(ctx context.Context, bookID, studentID uint64) (int, error) {
	queue, err := s.st.ListWaitlist(ctx, bookID)
	if err != nil {
		return 0, err
	}
	pos := rank(queue, studentID)
	if pos == 0 {
		return 0, makeErr(ErrNotFound, "not waitlisted for book %d", bookID)
	}
	return pos, nil
}

func (s *Waitlist) Leave(ctx context.Context, bookID, studentID uint64) error {
	return s.withTx(ctx, func(tx store.Tx) error {
		err := tx.RemoveWaitlistEntry(ctx, bookID, studentID)
		if errors.Is(err, store.ErrNotFound) {
			return makeErr(ErrNotFound, "not waitlisted for book %d", bookID)
		}
		return err
	})
}

// PromoteHead pops the earliest entry of the queue inside tx. ok is false
// when nobody is waiting.
func (s *Waitlist) PromoteHead(ctx context.Context, tx store.Tx, bookID uint64) (model.WaitlistEntry, bool, error) {
	e, err := tx.PopWaitlistHead(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return model.WaitlistEntry{}, false, nil
	}
	if err != nil {
		return model.WaitlistEntry{}, false, err
	}
	return e, true, nil
}

// rank is 1-indexed; 0 means absent. queue must be head first.
func rank(queue []model.WaitlistEntry, studentID uint64) int {
	for i, e := range queue {
		if e.StudentID == studentID {
			return i + 1
		}
	}
	return 0
}
