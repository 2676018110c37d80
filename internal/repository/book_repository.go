package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

const bookColumns = `id, title, author, isbn, genre, publisher, mrp, access_level,
	total_copies, available_copies, created_at, updated_at`

// BookRepo manages persistence for books and their copy counters.
type BookRepo struct {
	q sqlx.ExtContext
}

// NewBookRepo binds a BookRepo to a pool or a transaction.
func NewBookRepo(q sqlx.ExtContext) *BookRepo { return &BookRepo{q: q} }

// GetBook retrieves a book by its ID.  It returns store.ErrNotFound if
// there is no matching row.
func (r *BookRepo) GetBook(ctx context.Context, id uint64) (model.Book, error) {
	var b model.Book
	err := sqlx.GetContext(ctx, r.q, &b, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return b, notFound(err)
}

// LockBook is GetBook with FOR UPDATE. Running it before any other read in
// the transaction also makes later plain reads see every transaction that
// held the row before us.
func (r *BookRepo) LockBook(ctx context.Context, id uint64) (model.Book, error) {
	var b model.Book
	err := sqlx.GetContext(ctx, r.q, &b, `SELECT `+bookColumns+` FROM books WHERE id = ? FOR UPDATE`, id)
	return b, notFound(err)
}

// CreateBook inserts a new book and reloads it so that the generated ID
// and DB-default timestamps are populated on b.
func (r *BookRepo) CreateBook(ctx context.Context, b *model.Book) error {
	const q = `INSERT INTO books (title, author, isbn, genre, publisher, mrp, access_level, total_copies, available_copies)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, b.Title, b.Author, b.ISBN, b.Genre, b.Publisher, b.MRP,
		b.AccessLevel, b.TotalCopies, b.AvailableCopies)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.GetBook(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = fresh
	return nil
}

// UpdateBook overwrites every mutable column of b and reloads the row.
// MySQL reports zero affected rows for no-op updates, so existence is
// decided by the reload.
func (r *BookRepo) UpdateBook(ctx context.Context, b *model.Book) error {
	const q = `UPDATE books
	           SET title = ?, author = ?, isbn = ?, genre = ?, publisher = ?, mrp = ?, access_level = ?,
	               total_copies = ?, available_copies = ?, updated_at = ?
	           WHERE id = ?`
	if _, err := r.q.ExecContext(ctx, q, b.Title, b.Author, b.ISBN, b.Genre, b.Publisher, b.MRP,
		b.AccessLevel, b.TotalCopies, b.AvailableCopies, time.Now().UTC(), b.ID); err != nil {
		return err
	}
	fresh, err := r.GetBook(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = fresh
	return nil
}

// DeleteIdleBook deletes the book only while every copy is on the shelf.
func (r *BookRepo) DeleteIdleBook(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM books WHERE id = ? AND available_copies = total_copies`, id)
	if err != nil {
		return err
	}
	return r.guardResult(ctx, res.RowsAffected, id, store.ErrConflict)
}

// ReserveCopy decrements available_copies in a single guarded statement
// so two concurrent approvals cannot both take the last copy.
func (r *BookRepo) ReserveCopy(ctx context.Context, bookID uint64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - 1 WHERE id = ? AND available_copies > 0`, bookID)
	if err != nil {
		return err
	}
	return r.guardResult(ctx, res.RowsAffected, bookID, store.ErrNoCopies)
}

// ReleaseCopy increments available_copies but never past total_copies.
func (r *BookRepo) ReleaseCopy(ctx context.Context, bookID uint64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1 WHERE id = ? AND available_copies < total_copies`, bookID)
	if err != nil {
		return err
	}
	return r.guardResult(ctx, res.RowsAffected, bookID, store.ErrConflict)
}

// guardResult maps a guarded write that touched no row onto either
// store.ErrNotFound or guardErr.
func (r *BookRepo) guardResult(ctx context.Context, affected func() (int64, error), id uint64, guardErr error) error {
	n, err := affected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	ok, err := exists(ctx, r.q, "books", id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return guardErr
}

// BookStats partitions the catalogue by access level.
func (r *BookRepo) BookStats(ctx context.Context) (model.BookStats, error) {
	const q = `SELECT COUNT(*) AS total,
	                  COALESCE(SUM(access_level = 'NORMAL'), 0)  AS normal,
	                  COALESCE(SUM(access_level = 'PREMIUM'), 0) AS premium,
	                  COALESCE(SUM(total_copies), 0)             AS copies,
	                  COALESCE(SUM(available_copies), 0)         AS available
	           FROM books`
	var s model.BookStats
	err := sqlx.GetContext(ctx, r.q, &s, q)
	return s, err
}
