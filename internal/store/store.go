package store

import (
    "context"
    "time"

    "github.com/iliyamo/library-circulation/internal/model"
)

// Queries are lock-free reads. Outside a transaction they may observe
// slightly stale counts.
type Queries interface {
    GetBook(ctx context.Context, id uint64) (model.Book, error)
    SearchBooks(ctx context.Context, f model.BookFilter) ([]model.Book, error)
    BookStats(ctx context.Context) (model.BookStats, error)

    GetIssueRequest(ctx context.Context, id uint64) (model.IssueRequest, error)
    ListIssueRequests(ctx context.Context, f model.RequestFilter) ([]model.IssueRequest, error)
    // CountRequestsBetween counts a student's requests with requested_at in [from, to).
    CountRequestsBetween(ctx context.Context, studentID uint64, from, to time.Time) (int, error)
    HasPendingRequest(ctx context.Context, studentID, bookID uint64) (bool, error)

    // GetMembership returns ErrNotFound for users that never subscribed.
    GetMembership(ctx context.Context, userID uint64) (model.Membership, error)

    // ListWaitlist returns the queue for a book, head first.
    ListWaitlist(ctx context.Context, bookID uint64) ([]model.WaitlistEntry, error)

    GetLoan(ctx context.Context, id uint64) (model.Loan, error)
    ListLoans(ctx context.Context, f model.LoanFilter) ([]model.Loan, error)
    CountOverdueLoans(ctx context.Context, studentID uint64, now time.Time) (int, error)
    CountOpenLoans(ctx context.Context, bookID uint64) (int, error)
}

// Mutations are only reachable through a Tx.
type Mutations interface {
    // LockBook reads a book and holds it against concurrent writers until
    // the Tx ends. Read-modify-write paths must use it instead of GetBook.
    LockBook(ctx context.Context, id uint64) (model.Book, error)
    // LockMembership is LockBook for a user's membership. It serializes
    // writers even when the user has no membership row yet.
    LockMembership(ctx context.Context, userID uint64) (model.Membership, error)

    // CreateBook assigns ID and timestamps on b.
    CreateBook(ctx context.Context, b *model.Book) error
    UpdateBook(ctx context.Context, b *model.Book) error
    // DeleteIdleBook removes a book only when every copy is on the shelf;
    // otherwise it returns ErrConflict.
    DeleteIdleBook(ctx context.Context, id uint64) error
    // ReserveCopy takes one copy off the shelf or returns ErrNoCopies.
    ReserveCopy(ctx context.Context, bookID uint64) error
    // ReleaseCopy puts one copy back or returns ErrConflict at the ceiling.
    ReleaseCopy(ctx context.Context, bookID uint64) error

    CreateIssueRequest(ctx context.Context, r *model.IssueRequest) error
    // DecideIssueRequest writes the decision fields of r only while the
    // stored row is still PENDING; otherwise it returns ErrStale.
    DecideIssueRequest(ctx context.Context, r *model.IssueRequest) error

    CreateLoan(ctx context.Context, l *model.Loan) error
    // CloseLoan records the return only while the loan is open; otherwise
    // it returns ErrStale.
    CloseLoan(ctx context.Context, l *model.Loan) error

    SaveMembership(ctx context.Context, m *model.Membership) error

    // AddWaitlistEntry returns ErrDuplicate when the pair is already queued.
    AddWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error
    RemoveWaitlistEntry(ctx context.Context, bookID, studentID uint64) error
    // PopWaitlistHead removes and returns the head of the queue, or
    // ErrNotFound when the queue is empty.
    PopWaitlistHead(ctx context.Context, bookID uint64) (model.WaitlistEntry, error)
}

// Accounts persists users and refresh tokens. These writes are single
// statements and do not need a Tx.
type Accounts interface {
    // CreateUser returns ErrDuplicate when the email is taken.
    CreateUser(ctx context.Context, u *model.User) error
    GetUserByEmail(ctx context.Context, email string) (model.User, error)
    GetUserByID(ctx context.Context, id uint64) (model.User, error)

    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    // ValidateRefresh returns the owner of a live token or ErrNotFound.
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Tx is one atomic unit of work. Reads through a Tx see its own writes.
type Tx interface {
    Queries
    Mutations
    Commit() error
    Rollback() error
}

// Store is implemented by repository.Store (MySQL) and inmemory.Store.
type Store interface {
    Queries
    Accounts
    Begin(ctx context.Context) (Tx, error)
}
