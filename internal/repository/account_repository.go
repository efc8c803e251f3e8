package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/natalplan/auth-service/internal/model"
)

// AccountRepo persists accounts. Emails are stored encrypted; all lookups go
// through the deterministic lookup hash computed by the caller.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

// Create inserts an account and returns its ID. The caller supplies the
// already-encrypted email, its lookup hash and the bcrypt password hash.
// New accounts start active but unverified; they cannot log in until the
// verification link is followed.
func (r *AccountRepo) Create(ctx context.Context, emailEnc, emailHash, passwordHash string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (email_enc, email_hash, password_hash, is_active, email_verified) VALUES (?,?,?,1,0)",
		emailEnc, emailHash, passwordHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmailHash fetches an account by the deterministic lookup hash.
func (r *AccountRepo) GetByEmailHash(ctx context.Context, emailHash string) (model.Account, error) {
	return r.get(ctx, "email_hash=?", emailHash)
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return r.get(ctx, "id=?", id)
}

func (r *AccountRepo) get(ctx context.Context, where string, arg any) (model.Account, error) {
	var (
		a         model.Account
		lastLogin sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email_enc,email_hash,password_hash,is_active,email_verified,last_login_at,created_at,updated_at FROM accounts WHERE "+where+" LIMIT 1",
		arg).Scan(&a.ID, &a.EmailEnc, &a.EmailHash, &a.PasswordHash, &a.IsActive, &a.EmailVerified, &lastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return a, nil
}

// TouchLastLogin records a successful password check.
func (r *AccountRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET last_login_at=? WHERE id=?", at.UTC(), id)
	return err
}

// MarkEmailVerified flips the verification flag.
func (r *AccountRepo) MarkEmailVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET email_verified=1 WHERE id=?", id)
	return err
}

// UpdatePassword replaces the stored password hash, e.g. after a reset.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET password_hash=? WHERE id=?", passwordHash, id)
	return err
}

// Deactivate soft-deletes an account. Rows are never hard-deleted.
func (r *AccountRepo) Deactivate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET is_active=0 WHERE id=?", id)
	return err
}
