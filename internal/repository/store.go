// Package repository implements the store contract on MySQL. Each table
// has its own repo; Store and Tx compose them over a *sqlx.DB or a
// *sqlx.Tx respectively so the same SQL runs inside and outside a
// transaction.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-circulation/internal/store"
)

// dialect renders goqu datasets as MySQL with ? placeholders.
var dialect = goqu.Dialect("mysql")

// Store is the MySQL-backed store.Store.
type Store struct {
	db *sqlx.DB
	*BookRepo
	*IssueRequestRepo
	*LoanRepo
	*MembershipRepo
	*WaitlistRepo
	*UserRepo
	*TokenRepo
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an open connection pool.
func NewStore(db *sql.DB) *Store {
	x := sqlx.NewDb(db, "mysql")
	return &Store{
		db:               x,
		BookRepo:         NewBookRepo(x),
		IssueRequestRepo: NewIssueRequestRepo(x),
		LoanRepo:         NewLoanRepo(x),
		MembershipRepo:   NewMembershipRepo(x),
		WaitlistRepo:     NewWaitlistRepo(x),
		UserRepo:         NewUserRepo(x),
		TokenRepo:        NewTokenRepo(x),
	}
}

// DB exposes the underlying pool, e.g. for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Begin starts a transaction whose repos all run on the same *sqlx.Tx.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{
		tx:               tx,
		BookRepo:         NewBookRepo(tx),
		IssueRequestRepo: NewIssueRequestRepo(tx),
		LoanRepo:         NewLoanRepo(tx),
		MembershipRepo:   NewMembershipRepo(tx),
		WaitlistRepo:     NewWaitlistRepo(tx),
	}, nil
}

// Tx is the MySQL-backed store.Tx.
type Tx struct {
	tx *sqlx.Tx
	*BookRepo
	*IssueRequestRepo
	*LoanRepo
	*MembershipRepo
	*WaitlistRepo
}

var _ store.Tx = (*Tx)(nil)

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// exists reports whether a row with the given id is present in table.
// Guarded updates use it to tell "missing" apart from "guard failed".
func exists(ctx context.Context, q sqlx.QueryerContext, table string, id uint64) (bool, error) {
	var ok bool
	err := q.QueryRowxContext(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = ?)", id).Scan(&ok)
	return ok, err
}
