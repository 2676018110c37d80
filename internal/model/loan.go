package model

import "time"

// Loan is the issued record created when a request is approved. It lives
// in the `loans` table until the copy comes back.
//
// Fields:
//  ID         – primary key identifier.
//  RequestID  – approved issue request.
//  StudentID  – borrower.
//  BookID     – borrowed title.
//  IssuedAt   – approval time.
//  DueDate    – return deadline.
//  ReturnedAt – when the copy was returned (nullable while on loan).
//  Fine       – late fine charged on return.
type Loan struct {
    ID         uint64     `db:"id" json:"id"`                              // loans.id
    RequestID  uint64     `db:"request_id" json:"requestId"`               // loans.request_id
    StudentID  uint64     `db:"student_id" json:"studentId"`               // loans.student_id
    BookID     uint64     `db:"book_id" json:"bookId"`                     // loans.book_id
    IssuedAt   time.Time  `db:"issued_at" json:"issuedAt"`                 // loans.issued_at
    DueDate    time.Time  `db:"due_date" json:"dueDate"`                   // loans.due_date
    ReturnedAt *time.Time `db:"returned_at" json:"returnedAt,omitempty"`   // loans.returned_at
    Fine       float64    `db:"fine" json:"fine"`                          // loans.fine
}

// Open reports whether the copy is still out.
func (l Loan) Open() bool { return l.ReturnedAt == nil }

// Overdue reports whether the loan is open and past its due date at now.
func (l Loan) Overdue(now time.Time) bool {
    return l.Open() && now.After(l.DueDate)
}

// LoanFilter narrows a loan listing. Zero values disable a filter.
type LoanFilter struct {
    StudentID uint64
    OpenOnly  bool
}
