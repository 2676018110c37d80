package repository

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-circulation/internal/model"
)

var bookSelect = []interface{}{
	"id", "title", "author", "isbn", "genre", "publisher", "mrp", "access_level",
	"total_copies", "available_copies", "created_at", "updated_at",
}

// SearchBooks applies the catalogue filters.
func (r *BookRepo) SearchBooks(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	query, args, err := searchBooksQuery(f)
	if err != nil {
		return nil, err
	}
	out := []model.Book{}
	if err := sqlx.SelectContext(ctx, r.q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// searchBooksQuery renders the search. The title term matches title,
// author or isbn; MySQL's dialect renders ILIKE as a collation-aware LIKE.
// genre has a binary collation, so its match is exact.
func searchBooksQuery(f model.BookFilter) (string, []interface{}, error) {
	ds := dialect.From("books").Select(bookSelect...).Prepared(true)

	if term := strings.TrimSpace(f.Title); term != "" {
		like := "%" + escapeLike(term) + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("title").ILike(like),
			goqu.C("author").ILike(like),
			goqu.C("isbn").ILike(like),
		))
	}
	if f.Genre != "" {
		ds = ds.Where(goqu.C("genre").Eq(f.Genre))
	}
	if f.AccessLevel != "" {
		ds = ds.Where(goqu.C("access_level").Eq(string(f.AccessLevel)))
	}
	if f.AvailableOnly {
		ds = ds.Where(goqu.C("available_copies").Gt(0))
	}
	return ds.Order(goqu.C("id").Asc()).ToSQL()
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
