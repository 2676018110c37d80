package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

const userColumns = "id,email,password_hash,role,is_active,created_at,updated_at"

type UserRepo struct{ q sqlx.ExtContext }

func NewUserRepo(q sqlx.ExtContext) *UserRepo { return &UserRepo{q: q} }

// CreateUser inserts u (email normalised, password already hashed) and
// sets its ID.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, is_active) VALUES (?,?,?,?)",
		u.Email, u.PasswordHash, u.Role, u.IsActive)
	if err != nil {
		if isDuplicateKey(err) {
			return store.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := sqlx.GetContext(ctx, r.q, &u, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return u, notFound(err)
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, r.q, &u, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return u, notFound(err)
}
