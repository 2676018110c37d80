package inmemory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return s.write(func(txn *memdb.Txn) error {
		if _, err := first[model.User](txn, tableUsers, "email", u.Email); err == nil {
			return store.ErrDuplicate
		}
		now := s.now()
		u.ID = s.seq.users.Add(1)
		u.CreatedAt, u.UpdatedAt = now, now
		return txn.Insert(tableUsers, *u)
	})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	txn, done := s.txn()
	defer done()
	return first[model.User](txn, tableUsers, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	txn, done := s.txn()
	defer done()
	return first[model.User](txn, tableUsers, "id", id)
}

func (s *Store) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return s.write(func(txn *memdb.Txn) error {
		if _, err := first[model.RefreshToken](txn, tableTokens, "id", tokenHash); err == nil {
			return store.ErrDuplicate
		}
		return txn.Insert(tableTokens, model.RefreshToken{
			ID:        s.seq.tokens.Add(1),
			UserID:    userID,
			TokenHash: tokenHash,
			ExpiresAt: exp.UTC(),
			CreatedAt: s.now(),
		})
	})
}

func (s *Store) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	txn, done := s.txn()
	defer done()
	rt, err := first[model.RefreshToken](txn, tableTokens, "id", tokenHash)
	if err != nil {
		return 0, err
	}
	if rt.RevokedAt != nil || s.now().After(rt.ExpiresAt) {
		return 0, store.ErrNotFound
	}
	return rt.UserID, nil
}

func (s *Store) RevokeByHash(ctx context.Context, tokenHash string) error {
	return s.write(func(txn *memdb.Txn) error {
		rt, err := first[model.RefreshToken](txn, tableTokens, "id", tokenHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		return s.revoke(txn, rt)
	})
}

func (s *Store) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return s.write(func(txn *memdb.Txn) error {
		tokens, err := all[model.RefreshToken](txn, tableTokens, "user_id", userID)
		if err != nil {
			return err
		}
		for _, rt := range tokens {
			if err := s.revoke(txn, rt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) revoke(txn *memdb.Txn, rt model.RefreshToken) error {
	if rt.RevokedAt != nil {
		return nil
	}
	now := s.now()
	rt.RevokedAt = &now
	return txn.Insert(tableTokens, rt)
}
