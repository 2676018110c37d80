package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

const loanColumns = `id, request_id, student_id, book_id, issued_at, due_date, returned_at, fine`

var loanSelect = []interface{}{
	"id", "request_id", "student_id", "book_id", "issued_at", "due_date", "returned_at", "fine",
}

// LoanRepo persists issued records.
type LoanRepo struct {
	q sqlx.ExtContext
}

// NewLoanRepo binds a LoanRepo to a pool or a transaction.
func NewLoanRepo(q sqlx.ExtContext) *LoanRepo { return &LoanRepo{q: q} }

func (r *LoanRepo) GetLoan(ctx context.Context, id uint64) (model.Loan, error) {
	var l model.Loan
	err := sqlx.GetContext(ctx, r.q, &l, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	return l, notFound(err)
}

func (r *LoanRepo) ListLoans(ctx context.Context, f model.LoanFilter) ([]model.Loan, error) {
	query, args, err := listLoansQuery(f)
	if err != nil {
		return nil, err
	}
	out := []model.Loan{}
	if err := sqlx.SelectContext(ctx, r.q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func listLoansQuery(f model.LoanFilter) (string, []interface{}, error) {
	ds := dialect.From("loans").Select(loanSelect...).Prepared(true)
	if f.StudentID != 0 {
		ds = ds.Where(goqu.C("student_id").Eq(f.StudentID))
	}
	if f.OpenOnly {
		ds = ds.Where(goqu.C("returned_at").IsNull())
	}
	return ds.Order(goqu.C("issued_at").Desc(), goqu.C("id").Desc()).ToSQL()
}

// CountOverdueLoans counts the student's open loans whose due date has
// passed at now.
func (r *LoanRepo) CountOverdueLoans(ctx context.Context, studentID uint64, now time.Time) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n,
		`SELECT COUNT(*) FROM loans WHERE student_id = ? AND returned_at IS NULL AND due_date < ?`,
		studentID, now.UTC())
	return n, err
}

// CountOpenLoans counts copies of a book that are still out.
func (r *LoanRepo) CountOpenLoans(ctx context.Context, bookID uint64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n,
		`SELECT COUNT(*) FROM loans WHERE book_id = ? AND returned_at IS NULL`, bookID)
	return n, err
}

func (r *LoanRepo) CreateLoan(ctx context.Context, l *model.Loan) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO loans (request_id, student_id, book_id, issued_at, due_date) VALUES (?, ?, ?, ?, ?)`,
		l.RequestID, l.StudentID, l.BookID, l.IssuedAt.UTC(), l.DueDate.UTC())
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
	l.ID = uint64(id)
	return nil
}

// CloseLoan stamps returned_at and the fine while the loan is still open.
func (r *LoanRepo) CloseLoan(ctx context.Context, l *model.Loan) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE loans SET returned_at = ?, fine = ? WHERE id = ? AND returned_at IS NULL`,
		l.ReturnedAt, l.Fine, l.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	ok, err := exists(ctx, r.q, "loans", l.ID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return store.ErrStale
}
