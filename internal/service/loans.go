package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/queue"
	"github.com/iliyamo/library-circulation/internal/store"
)

// Loans processes returns of issued books.
type Loans struct {
	deps
	inventory  *Inventory
	waitlist   *Waitlist
	finePerDay float64
}

// Fine charges finePerDay for every started day past due, capped at the
// book's price.
func Fine(due, returned time.Time, mrp, finePerDay float64) float64 {
	if !returned.After(due) {
		return 0
	}
	days := math.Ceil(returned.Sub(due).Hours() / 24)
	fine := math.Min(days*finePerDay, mrp)
	return math.Round(fine*100) / 100
}

// Return closes an open loan, puts the copy back and promotes the head of
// the book's waitlist, all in one transaction.
func (s *Loans) Return(ctx context.Context, loanID uint64) (model.Loan, error) {
	now := s.now()
	var (
		loan     model.Loan
		promoted model.WaitlistEntry
		ok       bool
	)
	err := s.withTx(ctx, func(tx store.Tx) error {
		var err error
		loan, err = tx.GetLoan(ctx, loanID)
		if errors.Is(err, store.ErrNotFound) {
			return makeErr(ErrNotFound, "issued record %d not found", loanID)
		}
		if err != nil {
			return err
		}
		if !loan.Open() {
			return makeErr(ErrStateConflict, "issued record %d was already returned", loanID)
		}
		book, err := tx.GetBook(ctx, loan.BookID)
		if err != nil {
			return err
		}

		loan.ReturnedAt = &now
		loan.Fine = Fine(loan.DueDate, now, book.MRP, s.finePerDay)
		if err := tx.CloseLoan(ctx, &loan); err != nil {
			if errors.Is(err, store.ErrStale) {
				return makeErr(ErrStateConflict, "issued record %d was already returned", loanID)
			}
			return err
		}

		// A full restock may already have counted this copy as returned.
		if err := s.inventory.ReleaseCopy(ctx, tx, loan.BookID); err != nil {
			if Code(err) != ErrStateConflict {
				return err
			}
			s.log.Warn("return: copy already on the shelf", "book_id", loan.BookID, "loan_id", loanID)
		}

		promoted, ok, err = s.waitlist.PromoteHead(ctx, tx, loan.BookID)
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.publish(ctx, queue.NewEvent(queue.TypeLoanReturned, queue.BookReturnedEvent{
		LoanID:     loan.ID,
		StudentID:  loan.StudentID,
		BookID:     loan.BookID,
		ReturnedAt: now,
		Fine:       loan.Fine,
	}))
	if ok {
		s.publish(ctx, queue.NewEvent(queue.TypeWaitlistPromoted, queue.WaitlistPromotedEvent{
			BookID:     promoted.BookID,
			StudentID:  promoted.StudentID,
			PromotedAt: now,
		}))
	}
	return loan, nil
}

func (s *Loans) List(ctx context.Context, f model.LoanFilter) ([]model.Loan, error) {
	return s.st.ListLoans(ctx, f)
}

func (s *Loans) Get(ctx context.Context, id uint64) (model.Loan, error) {
	l, err := s.st.GetLoan(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return l, makeErr(ErrNotFound, "issued record %d not found", id)
	}
	return l, err
}
