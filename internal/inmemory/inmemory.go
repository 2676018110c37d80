// Package inmemory implements the store contract on hashicorp/go-memdb.
// It backs the service when STORAGE_DRIVER=memory and in tests.
//
// go-memdb admits a single writer at a time, so every Tx is serialized
// against the others while reads run lock-free on snapshots.
package inmemory

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/iliyamo/library-circulation/internal/store"
)

const (
	tableBooks       = "books"
	tableRequests    = "issue_requests"
	tableLoans       = "loans"
	tableMemberships = "memberships"
	tableWaitlist    = "waitlist"
	tableUsers       = "users"
	tableTokens      = "refresh_tokens"
)

func uintIndex(name, field string, unique bool) *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:    name,
		Unique:  unique,
		Indexer: &memdb.UintFieldIndex{Field: field},
	}
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableBooks: {
				Name: tableBooks,
				Indexes: map[string]*memdb.IndexSchema{
					"id": uintIndex("id", "ID", true),
				},
			},
			tableRequests: {
				Name: tableRequests,
				Indexes: map[string]*memdb.IndexSchema{
					"id":         uintIndex("id", "ID", true),
					"student_id": uintIndex("student_id", "StudentID", false),
					"book_id":    uintIndex("book_id", "BookID", false),
				},
			},
			tableLoans: {
				Name: tableLoans,
				Indexes: map[string]*memdb.IndexSchema{
					"id":         uintIndex("id", "ID", true),
					"request_id": uintIndex("request_id", "RequestID", true),
					"student_id": uintIndex("student_id", "StudentID", false),
					"book_id":    uintIndex("book_id", "BookID", false),
				},
			},
			tableMemberships: {
				Name: tableMemberships,
				Indexes: map[string]*memdb.IndexSchema{
					"id": uintIndex("id", "UserID", true),
				},
			},
			tableWaitlist: {
				Name: tableWaitlist,
				Indexes: map[string]*memdb.IndexSchema{
					"id": { // one entry per (book, student)
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.UintFieldIndex{Field: "BookID"},
								&memdb.UintFieldIndex{Field: "StudentID"},
							},
						},
					},
					"book_id": uintIndex("book_id", "BookID", false),
				},
			},
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					"id": uintIndex("id", "ID", true),
					"email": {
						Name:    "email",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
				},
			},
			tableTokens: {
				Name: tableTokens,
				Indexes: map[string]*memdb.IndexSchema{
					"id":      {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "TokenHash"}},
					"user_id": uintIndex("user_id", "UserID", false),
				},
			},
		},
	}
}

// sequences hands out AUTO_INCREMENT style identifiers. IDs consumed by
// aborted transactions are not reused.
type sequences struct {
	books, requests, loans, waitlist, users, tokens atomic.Uint64
}

// Store is the in-memory store.Store.
type Store struct {
	reader
	db  *memdb.MemDB
	seq *sequences
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New builds an empty store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	s := &Store{db: db, seq: &sequences{}, now: func() time.Time { return time.Now().UTC() }}
	s.reader = reader{txn: func() (*memdb.Txn, func()) {
		txn := db.Txn(false)
		return txn, txn.Abort
	}}
	return s, nil
}

// Begin opens a write transaction. It blocks while another Tx is open.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(true)
	t := &Tx{txn: txn, seq: s.seq, now: s.now}
	t.reader = reader{txn: func() (*memdb.Txn, func()) { return txn, func() {} }}
	return t, nil
}

// Tx is the in-memory store.Tx. Commit and Rollback are idempotent, so a
// deferred Rollback after Commit is harmless.
type Tx struct {
	reader
	txn *memdb.Txn
	seq *sequences
	now func() time.Time
}

var _ store.Tx = (*Tx)(nil)

func (t *Tx) Commit() error {
	t.txn.Commit()
	return nil
}

func (t *Tx) Rollback() error {
	t.txn.Abort()
	return nil
}

// write runs fn in its own write transaction and commits when fn
// succeeds.
func (s *Store) write(fn func(txn *memdb.Txn) error) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := fn(txn); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
