// Package store defines the persistence contract shared by the MySQL
// repositories and the in-memory store. The sentinel values below allow
// the service layer to distinguish failure scenarios without knowing
// which backend produced them.
package store

import "errors"

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded write cannot be applied because
// of the current state of the row, such as deleting a book with copies
// on loan or releasing a copy that is already on the shelf.
var ErrConflict = errors.New("conflict")

// ErrNoCopies is returned by ReserveCopy when no copy is on the shelf.
var ErrNoCopies = errors.New("no copies available")

// ErrDuplicate is returned when a unique key would be violated.
var ErrDuplicate = errors.New("duplicate")

// ErrStale is returned when a compare-and-set lost against a concurrent
// writer: the row no longer holds the expected state.
var ErrStale = errors.New("stale state")
