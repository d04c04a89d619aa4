package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/omamori-api/internal/model"
)

var accountTable = Table[model.Account]{
	Name:       "accounts",
	PrimaryKey: "id",
	Columns:    []string{"id", "email", "name", "password_hash", "created_at", "updated_at", "deleted_at"},
	Scan: func(sc Scanner) (*model.Account, error) {
		var a model.Account
		if err := sc.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt); err != nil {
			return nil, err
		}
		return &a, nil
	},
}

// AccountRepo is the accounts table store.
type AccountRepo struct {
	*Store[model.Account]
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{Store: NewStore(db, accountTable)}
}

// FindByEmail returns the live account with this exact email or ErrNotFound.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.FindOneBy(ctx, Criteria{"email": email})
}

// EmailExists reports whether a live account uses email.
func (r *AccountRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.Exists(ctx, Criteria{"email": email})
}

// EmailExistsExcept is EmailExists ignoring the account excludeID, used when
// an account changes its own email.
func (r *AccountRepo) EmailExistsExcept(ctx context.Context, email string, excludeID uint64) (bool, error) {
	const q = "SELECT COUNT(*) FROM accounts WHERE email = ? AND id <> ? AND deleted_at IS NULL"
	var n int64
	if err := r.DB().QueryRowContext(ctx, q, email, excludeID).Scan(&n); err != nil {
		return false, r.wrap("email exists", err)
	}
	return n > 0, nil
}
