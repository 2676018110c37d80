package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

// MembershipStatus is the derived view of a membership at a point in time.
type MembershipStatus struct {
	UserID              uint64                    `json:"userId"`
	Type                model.MembershipType      `json:"type"`
	SubscriptionPackage model.SubscriptionPackage `json:"subscriptionPackage,omitempty"`
	SubscriptionStart   *time.Time                `json:"subscriptionStart,omitempty"`
	SubscriptionEnd     *time.Time                `json:"subscriptionEnd,omitempty"`
	IsPremium           bool                      `json:"isPremium"`
	DaysRemaining       int                       `json:"daysRemaining"`
}

// Memberships manages premium subscriptions. Premium status is never
// stored; it is derived from the subscription end on every read.
type Memberships struct {
	deps
}

func parsePackage(s string) (model.SubscriptionPackage, error) {
	p, ok := model.ParsePackage(s)
	if !ok {
		return "", makeErr(ErrInvalidPackage, "unknown subscription package %q", s)
	}
	return p, nil
}

// Activate starts a fresh premium window now, replacing any current one.
func (s *Memberships) Activate(ctx context.Context, userID uint64, pkg string) (MembershipStatus, error) {
	p, err := parsePackage(pkg)
	if err != nil {
		return MembershipStatus{}, err
	}
	now := s.now()
	m := freshWindow(userID, p, now)
	if err := s.withTx(ctx, func(tx store.Tx) error { return tx.SaveMembership(ctx, &m) }); err != nil {
		return MembershipStatus{}, err
	}
	return statusOf(m, now), nil
}

// Extend stacks the package on an active window, or opens a fresh one
// from now when the window has lapsed or never existed.
func (s *Memberships) Extend(ctx context.Context, userID uint64, pkg string) (MembershipStatus, error) {
	p, err := parsePackage(pkg)
	if err != nil {
		return MembershipStatus{}, err
	}
	now := s.now()
	var m model.Membership
	err = s.withTx(ctx, func(tx store.Tx) error {
		cur, err := tx.LockMembership(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			cur, err = model.NormalMembership(userID), nil
		}
		if err != nil {
			return err
		}
		if cur.IsPremium(now) {
			end := cur.SubscriptionEnd.Add(p.Duration())
			cur.SubscriptionEnd = &end
			cur.Package = p
			cur.UpdatedAt = now
			m = cur
		} else {
			m = freshWindow(userID, p, now)
		}
		return tx.SaveMembership(ctx, &m)
	})
	if err != nil {
		return MembershipStatus{}, err
	}
	return statusOf(m, now), nil
}

func (s *Memberships) Status(ctx context.Context, userID uint64) (MembershipStatus, error) {
	m, err := s.load(ctx, s.st, userID)
	if err != nil {
		return MembershipStatus{}, err
	}
	return statusOf(m, s.now()), nil
}

// isPremium answers through q so callers inside a transaction see their
// own view.
func (s *Memberships) isPremium(ctx context.Context, q store.Queries, userID uint64) (bool, error) {
	m, err := s.load(ctx, q, userID)
	if err != nil {
		return false, err
	}
	return m.IsPremium(s.now()), nil
}

func (s *Memberships) load(ctx context.Context, q store.Queries, userID uint64) (model.Membership, error) {
	m, err := q.GetMembership(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.NormalMembership(userID), nil
	}
	return m, err
}

func freshWindow(userID uint64, p model.SubscriptionPackage, now time.Time) model.Membership {
	end := now.Add(p.Duration())
	start := now
	return model.Membership{
		UserID:            userID,
		Type:              model.MembershipPremium,
		Package:           p,
		SubscriptionStart: &start,
		SubscriptionEnd:   &end,
		UpdatedAt:         now,
	}
}

func statusOf(m model.Membership, now time.Time) MembershipStatus {
	st := MembershipStatus{
		UserID:              m.UserID,
		Type:                m.Type,
		SubscriptionPackage: m.Package,
		SubscriptionStart:   m.SubscriptionStart,
		SubscriptionEnd:     m.SubscriptionEnd,
		IsPremium:           m.IsPremium(now),
	}
	if st.IsPremium {
		st.DaysRemaining = int(math.Ceil(m.SubscriptionEnd.Sub(now).Hours() / 24))
	}
	return st
}
