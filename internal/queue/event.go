// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the log consumer that move them.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// Event types published by the circulation services.
const (
    TypeRequestApproved  = "issue_request.approved"
    TypeRequestRejected  = "issue_request.rejected"
    TypeWaitlistPromoted = "waitlist.promoted"
    TypeLoanReturned     = "loan.returned"
)

// Event is the envelope written to the broker.  Data carries one of the
// payload structs below.
type Event struct {
    ID         string    `json:"id"`
    Type       string    `json:"type"`
    OccurredAt time.Time `json:"occurred_at"`
    Data       any       `json:"data"`
}

// NewEvent stamps a payload with a fresh id and the current time.
func NewEvent(typ string, data any) Event {
    return Event{
        ID:         uuid.NewString(),
        Type:       typ,
        OccurredAt: time.Now().UTC(),
        Data:       data,
    }
}

// RequestDecidedEvent is published when a librarian approves or rejects an
// issue request.  LoanID and DueDate are set for approvals only.
type RequestDecidedEvent struct {
    RequestID   uint64     `json:"request_id"`
    StudentID   uint64     `json:"student_id"`
    BookID      uint64     `json:"book_id"`
    Status      string     `json:"status"`
    ProcessedBy uint64     `json:"processed_by"`
    LoanID      *uint64    `json:"loan_id,omitempty"`
    DueDate     *time.Time `json:"due_date,omitempty"`
    Reason      *string    `json:"reason,omitempty"`
}

// WaitlistPromotedEvent tells a queued student that a copy is back on the
// shelf.  The student still has to file an issue request.
type WaitlistPromotedEvent struct {
    BookID     uint64    `json:"book_id"`
    StudentID  uint64    `json:"student_id"`
    PromotedAt time.Time `json:"promoted_at"`
}

// BookReturnedEvent is published after a loan is closed.
type BookReturnedEvent struct {
    LoanID     uint64    `json:"loan_id"`
    StudentID  uint64    `json:"student_id"`
    BookID     uint64    `json:"book_id"`
    ReturnedAt time.Time `json:"returned_at"`
    Fine       float64   `json:"fine"`
}
