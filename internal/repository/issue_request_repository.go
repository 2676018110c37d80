package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

const requestColumns = `id, student_id, book_id, status, requested_at, processed_at, processed_by,
	reason, expected_due_date, issued_record_id`

var requestSelect = []interface{}{
	"id", "student_id", "book_id", "status", "requested_at", "processed_at", "processed_by",
	"reason", "expected_due_date", "issued_record_id",
}

// IssueRequestRepo provides data access to the issue_requests table.
// Decisions are written with a compare-and-set on status so that a
// request can be decided only once.
type IssueRequestRepo struct {
	q sqlx.ExtContext
}

// NewIssueRequestRepo binds an IssueRequestRepo to a pool or a transaction.
func NewIssueRequestRepo(q sqlx.ExtContext) *IssueRequestRepo { return &IssueRequestRepo{q: q} }

// GetIssueRequest loads one request or returns store.ErrNotFound.
func (r *IssueRequestRepo) GetIssueRequest(ctx context.Context, id uint64) (model.IssueRequest, error) {
	var ir model.IssueRequest
	err := sqlx.GetContext(ctx, r.q, &ir, `SELECT `+requestColumns+` FROM issue_requests WHERE id = ?`, id)
	return ir, notFound(err)
}

// ListIssueRequests returns requests newest first.
func (r *IssueRequestRepo) ListIssueRequests(ctx context.Context, f model.RequestFilter) ([]model.IssueRequest, error) {
	query, args, err := listIssueRequestsQuery(f)
	if err != nil {
		return nil, err
	}
	out := []model.IssueRequest{}
	if err := sqlx.SelectContext(ctx, r.q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func listIssueRequestsQuery(f model.RequestFilter) (string, []interface{}, error) {
	ds := dialect.From("issue_requests").Select(requestSelect...).Prepared(true)
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(f.Status)))
	}
	if f.StudentID != 0 {
		ds = ds.Where(goqu.C("student_id").Eq(f.StudentID))
	}
	return ds.Order(goqu.C("requested_at").Desc(), goqu.C("id").Desc()).ToSQL()
}

// CountRequestsBetween counts a student's requests in [from, to).
func (r *IssueRequestRepo) CountRequestsBetween(ctx context.Context, studentID uint64, from, to time.Time) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n,
		`SELECT COUNT(*) FROM issue_requests WHERE student_id = ? AND requested_at >= ? AND requested_at < ?`,
		studentID, from.UTC(), to.UTC())
	return n, err
}

// HasPendingRequest reports whether the student already waits on a
// decision for the book.
func (r *IssueRequestRepo) HasPendingRequest(ctx context.Context, studentID, bookID uint64) (bool, error) {
	var ok bool
	err := sqlx.GetContext(ctx, r.q, &ok,
		`SELECT EXISTS(SELECT 1 FROM issue_requests WHERE student_id = ? AND book_id = ? AND status = 'PENDING')`,
		studentID, bookID)
	return ok, err
}

// CreateIssueRequest inserts a PENDING request and assigns its ID.
func (r *IssueRequestRepo) CreateIssueRequest(ctx context.Context, ir *model.IssueRequest) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO issue_requests (student_id, book_id, status, requested_at) VALUES (?, ?, ?, ?)`,
		ir.StudentID, ir.BookID, ir.Status, ir.RequestedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ir.ID = uint64(id)
	return nil
}

// DecideIssueRequest moves a PENDING request to its terminal state.  The
// WHERE clause is the compare-and-set: a second decision on the same row
// touches nothing and gets store.ErrStale.
func (r *IssueRequestRepo) DecideIssueRequest(ctx context.Context, ir *model.IssueRequest) error {
	const q = `UPDATE issue_requests
	           SET status = ?, processed_at = ?, processed_by = ?, reason = ?, expected_due_date = ?, issued_record_id = ?
	           WHERE id = ? AND status = 'PENDING'`
	res, err := r.q.ExecContext(ctx, q, ir.Status, ir.ProcessedAt, ir.ProcessedByID, ir.Reason,
		ir.ExpectedDueDate, ir.IssuedRecordID, ir.ID)
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
	ok, err := exists(ctx, r.q, "issue_requests", ir.ID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return store.ErrStale
}
