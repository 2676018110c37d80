package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/queue"
	"github.com/iliyamo/library-circulation/internal/store"
)

// Loan periods granted at approval when no due date is given.
const (
	NormalLoanDays  = 14
	PremiumLoanDays = 60
)

const maxReasonLen = 512

// CreateResult is either a new PENDING request or, when the shelf was
// empty, the student's place in the waitlist.
type CreateResult struct {
	Request    *model.IssueRequest `json:"request,omitempty"`
	Waitlisted bool                `json:"waitlisted"`
	Position   int                 `json:"position,omitempty"`
}

// IssueRequests is the PENDING -> APPROVED | REJECTED state machine.
type IssueRequests struct {
	deps
	inventory *Inventory
	members   *Memberships
	quota     *Quota
	waitlist  *Waitlist
}

// Create files a request for a book. Checks run in order: book exists,
// access level, overdue loans, monthly quota, duplicate pending request.
// No copy is reserved; an empty shelf puts the student on the waitlist.
func (s *IssueRequests) Create(ctx context.Context, studentID, bookID uint64) (CreateResult, error) {
	var res CreateResult
	err := s.withTx(ctx, func(tx store.Tx) error {
		now := s.now()
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

		overdue, err := tx.CountOverdueLoans(ctx, studentID, now)
		if err != nil {
			return err
		}
		if overdue > 0 {
			return makeErr(ErrOverdue, "return %d overdue book(s) first", overdue)
		}

		quota, err := s.quota.remaining(ctx, tx, studentID)
		if err != nil {
			return err
		}
		if quota.Exhausted() {
			return makeErr(ErrQuotaExceeded, "monthly limit of %d requests reached", quota.Limit)
		}

		pending, err := tx.HasPendingRequest(ctx, studentID, bookID)
		if err != nil {
			return err
		}
		if pending {
			return makeErr(ErrAlreadyExists, "a request for book %d is already pending", bookID)
		}

		if book.AvailableCopies == 0 {
			pos, err := s.waitlist.join(ctx, tx, book, studentID)
			if err != nil {
				return err
			}
			res = CreateResult{Waitlisted: true, Position: pos}
			return nil
		}

		ir := model.IssueRequest{
			StudentID:   studentID,
			BookID:      bookID,
			Status:      model.RequestPending,
			RequestedAt: now,
		}
		if err := tx.CreateIssueRequest(ctx, &ir); err != nil {
			return err
		}
		res = CreateResult{Request: &ir}
		return nil
	})
	return res, err
}

// Approve reserves a copy, opens the loan and decides the request in one
// transaction. A due date in the past is rejected.
func (s *IssueRequests) Approve(ctx context.Context, requestID, approverID uint64, expectedDue *time.Time) (model.IssueRequest, error) {
	now := s.now()
	if expectedDue != nil && !expectedDue.After(now) {
		return model.IssueRequest{}, makeErr(ErrValidation, "expectedDueDate must be in the future")
	}
	var ir model.IssueRequest
	err := s.withTx(ctx, func(tx store.Tx) error {
		var err error
		ir, err = s.pending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if err := s.inventory.ReserveCopy(ctx, tx, ir.BookID); err != nil {
			return err
		}

		due := now.AddDate(0, 0, NormalLoanDays)
		if expectedDue != nil {
			due = expectedDue.UTC()
		} else {
			premium, err := s.members.isPremium(ctx, tx, ir.StudentID)
			if err != nil {
				return err
			}
			if premium {
				due = now.AddDate(0, 0, PremiumLoanDays)
			}
		}

		loan := model.Loan{RequestID: ir.ID, StudentID: ir.StudentID, BookID: ir.BookID, IssuedAt: now, DueDate: due}
		if err := tx.CreateLoan(ctx, &loan); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return makeErr(ErrInvalidStateTransition, "request %d was already issued", requestID)
			}
			return err
		}

		ir.Status = model.RequestApproved
		ir.ProcessedAt = &now
		ir.ProcessedByID = &approverID
		ir.ExpectedDueDate = &due
		ir.IssuedRecordID = &loan.ID
		return s.decide(ctx, tx, &ir)
	})
	if err != nil {
		return model.IssueRequest{}, err
	}

	s.publish(ctx, queue.NewEvent(queue.TypeRequestApproved, queue.RequestDecidedEvent{
		RequestID:   ir.ID,
		StudentID:   ir.StudentID,
		BookID:      ir.BookID,
		Status:      string(ir.Status),
		ProcessedBy: approverID,
		LoanID:      ir.IssuedRecordID,
		DueDate:     ir.ExpectedDueDate,
	}))
	return ir, nil
}

// Reject closes a PENDING request without touching inventory.
func (s *IssueRequests) Reject(ctx context.Context, requestID, approverID uint64, reason string) (model.IssueRequest, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLen {
		return model.IssueRequest{}, makeErr(ErrValidation, "reason must be at most %d characters", maxReasonLen)
	}
	now := s.now()
	var ir model.IssueRequest
	err := s.withTx(ctx, func(tx store.Tx) error {
		var err error
		ir, err = s.pending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		ir.Status = model.RequestRejected
		ir.ProcessedAt = &now
		ir.ProcessedByID = &approverID
		if reason != "" {
			ir.Reason = &reason
		}
		return s.decide(ctx, tx, &ir)
	})
	if err != nil {
		return model.IssueRequest{}, err
	}

	s.publish(ctx, queue.NewEvent(queue.TypeRequestRejected, queue.RequestDecidedEvent{
		RequestID:   ir.ID,
		StudentID:   ir.StudentID,
		BookID:      ir.BookID,
		Status:      string(ir.Status),
		ProcessedBy: approverID,
		Reason:      ir.Reason,
	}))
	return ir, nil
}

func (s *IssueRequests) List(ctx context.Context, f model.RequestFilter) ([]model.IssueRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, makeErr(ErrValidation, "status must be PENDING, APPROVED or REJECTED")
	}
	return s.st.ListIssueRequests(ctx, f)
}

func (s *IssueRequests) Get(ctx context.Context, id uint64) (model.IssueRequest, error) {
	ir, err := s.st.GetIssueRequest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ir, makeErr(ErrNotFound, "issue request %d not found", id)
	}
	return ir, err
}

// pending loads a request that is still awaiting a decision.
func (s *IssueRequests) pending(ctx context.Context, tx store.Tx, id uint64) (model.IssueRequest, error) {
	ir, err := tx.GetIssueRequest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ir, makeErr(ErrNotFound, "issue request %d not found", id)
	}
	if err != nil {
		return ir, err
	}
	if ir.Status != model.RequestPending {
		return ir, makeErr(ErrInvalidStateTransition, "issue request %d is already %s", id, ir.Status)
	}
	return ir, nil
}

// decide writes the decision with the store's compare-and-set. Losing the
// race rolls back everything done earlier in tx.
func (s *IssueRequests) decide(ctx context.Context, tx store.Tx, ir *model.IssueRequest) error {
	err := tx.DecideIssueRequest(ctx, ir)
	if errors.Is(err, store.ErrStale) {
		return makeErr(ErrInvalidStateTransition, "issue request %d was decided concurrently", ir.ID)
	}
	return err
}
