package model

import "time"

// RequestStatus is the state of an issue request. PENDING is the only
// non-terminal state.
type RequestStatus string

const (
    RequestPending  RequestStatus = "PENDING"
    RequestApproved RequestStatus = "APPROVED"
    RequestRejected RequestStatus = "REJECTED"
)

// Valid reports whether the status is one of the known values.
func (s RequestStatus) Valid() bool {
    switch s {
    case RequestPending, RequestApproved, RequestRejected:
        return true
    }
    return false
}

// IssueRequest is a student's request to borrow a book, stored in the
// `issue_requests` table. It is decided exactly once by a librarian or
// admin and is immutable afterwards.
//
// Fields:
//  ID              – primary key identifier.
//  StudentID       – requesting student.
//  BookID          – requested book.
//  Status          – PENDING, APPROVED or REJECTED.
//  RequestedAt     – creation timestamp; drives the monthly quota.
//  ProcessedAt     – when the decision was made (nullable).
//  ProcessedByID   – librarian/admin who decided (nullable).
//  Reason          – rejection reason (nullable).
//  ExpectedDueDate – due date fixed at approval (nullable).
//  IssuedRecordID  – loan created by the approval (nullable).
type IssueRequest struct {
    ID              uint64        `db:"id" json:"id"`                                         // issue_requests.id
    StudentID       uint64        `db:"student_id" json:"studentId"`                          // issue_requests.student_id
    BookID          uint64        `db:"book_id" json:"bookId"`                                // issue_requests.book_id
    Status          RequestStatus `db:"status" json:"status"`                                 // issue_requests.status
    RequestedAt     time.Time     `db:"requested_at" json:"requestedAt"`                      // issue_requests.requested_at
    ProcessedAt     *time.Time    `db:"processed_at" json:"processedAt,omitempty"`            // issue_requests.processed_at
    ProcessedByID   *uint64       `db:"processed_by" json:"processedById,omitempty"`          // issue_requests.processed_by
    Reason          *string       `db:"reason" json:"reason,omitempty"`                       // issue_requests.reason
    ExpectedDueDate *time.Time    `db:"expected_due_date" json:"expectedDueDate,omitempty"`   // issue_requests.expected_due_date
    IssuedRecordID  *uint64       `db:"issued_record_id" json:"issuedRecordId,omitempty"`     // issue_requests.issued_record_id
}

// RequestFilter narrows a request listing. Zero values disable a filter.
type RequestFilter struct {
    Status    RequestStatus
    StudentID uint64
}
