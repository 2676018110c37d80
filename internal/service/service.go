// Package service implements the circulation and membership rules on top
// of the store contract. Every state change runs in one store transaction;
// events are published only after that transaction has committed.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/library-circulation/internal/queue"
	"github.com/iliyamo/library-circulation/internal/store"
)

//go:generate mockgen -destination=mocks/publisher_mock.go -package=mocks . Publisher

// Publisher delivers domain events. *queue.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Options tune the services. Zero values fall back to defaults.
type Options struct {
	Now             func() time.Time
	FinePerDay      float64
	BulkConcurrency int
	Logger          *slog.Logger
}

const (
	defaultFinePerDay      = 10
	defaultBulkConcurrency = 4
)

// Services bundles the components in dependency order.
type Services struct {
	Inventory     *Inventory
	Memberships   *Memberships
	Quota         *Quota
	Waitlist      *Waitlist
	IssueRequests *IssueRequests
	Bulk          *BulkCoordinator
	Loans         *Loans
}

// New wires all components over st. pub may be nil, in which case no
// events are sent.
func New(st store.Store, pub Publisher, opts Options) *Services {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FinePerDay <= 0 {
		opts.FinePerDay = defaultFinePerDay
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = defaultBulkConcurrency
	}
	d := deps{st: st, pub: pub, now: opts.Now, log: opts.Logger}

	inv := &Inventory{deps: d}
	mem := &Memberships{deps: d}
	quota := &Quota{deps: d, members: mem}
	wl := &Waitlist{deps: d, members: mem}
	reqs := &IssueRequests{deps: d, inventory: inv, members: mem, quota: quota, waitlist: wl}
	return &Services{
		Inventory:     inv,
		Memberships:   mem,
		Quota:         quota,
		Waitlist:      wl,
		IssueRequests: reqs,
		Bulk:          &BulkCoordinator{deps: d, requests: reqs, limit: opts.BulkConcurrency},
		Loans:         &Loans{deps: d, inventory: inv, waitlist: wl, finePerDay: opts.FinePerDay},
	}
}

type deps struct {
	st  store.Store
	pub Publisher
	now func() time.Time
	log *slog.Logger
}

// withTx runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (d deps) withTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := d.st.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// publish sends ev after a commit. Failures are logged and never undo the
// committed change.
func (d deps) publish(ctx context.Context, ev queue.Event) {
	if d.pub == nil {
		return
	}
	if err := d.pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		d.log.Warn("event publish failed", "type", ev.Type, "event_id", ev.ID, "err", err)
	}
}
