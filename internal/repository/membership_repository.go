package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-circulation/internal/model"
)

// MembershipRepo persists subscription state, one row per user.
type MembershipRepo struct {
	q sqlx.ExtContext
}

func NewMembershipRepo(q sqlx.ExtContext) *MembershipRepo { return &MembershipRepo{q: q} }

// GetMembership returns store.ErrNotFound for users without a row.
func (r *MembershipRepo) GetMembership(ctx context.Context, userID uint64) (model.Membership, error) {
	var m model.Membership
	err := sqlx.GetContext(ctx, r.q, &m,
		`SELECT user_id, type, package, subscription_start, subscription_end, updated_at
		 FROM memberships WHERE user_id = ?`, userID)
	return m, notFound(err)
}

// LockMembership locks the owning user row first: a FOR UPDATE on a
// missing membership row only takes a gap lock, which two first-time
// subscribers could both hold and then deadlock on insert.
func (r *MembershipRepo) LockMembership(ctx context.Context, userID uint64) (model.Membership, error) {
	var id uint64
	err := sqlx.GetContext(ctx, r.q, &id, `SELECT id FROM users WHERE id = ? FOR UPDATE`, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Membership{}, err
	}
	var m model.Membership
	err = sqlx.GetContext(ctx, r.q, &m,
		`SELECT user_id, type, package, subscription_start, subscription_end, updated_at
		 FROM memberships WHERE user_id = ? FOR UPDATE`, userID)
	return m, notFound(err)
}

// SaveMembership upserts the row keyed by user_id.
func (r *MembershipRepo) SaveMembership(ctx context.Context, m *model.Membership) error {
	const q = `INSERT INTO memberships (user_id, type, package, subscription_start, subscription_end, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE type = VALUES(type), package = VALUES(package),
	               subscription_start = VALUES(subscription_start), subscription_end = VALUES(subscription_end),
	               updated_at = VALUES(updated_at)`
	_, err := r.q.ExecContext(ctx, q, m.UserID, m.Type, m.Package, m.SubscriptionStart, m.SubscriptionEnd, m.UpdatedAt.UTC())
	return err
}
