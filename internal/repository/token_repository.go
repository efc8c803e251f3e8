package repository

import (
	"context"
	"database/sql"
	"time"
)

// LinkTokenRepo persists the single-use link tokens (password reset, email
// verification). Both tables share the same shape: a token hash, an expiry
// and a used_at marker, consumed with an atomic conditional UPDATE.
type LinkTokenRepo struct{ DB *sql.DB }

func NewLinkTokenRepo(db *sql.DB) *LinkTokenRepo { return &LinkTokenRepo{DB: db} }

// CreateReset stores a reset token hash for the account. Any prior active
// token for the same account is invalidated in the same transaction, so at
// most one reset link works at a time.
func (r *LinkTokenRepo) CreateReset(ctx context.Context, accountID uint64, tokenHash string, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used_at=NOW() WHERE account_id=? AND used_at IS NULL", accountID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (account_id, token_hash, expires_at) VALUES (?,?,?)",
		accountID, tokenHash, exp.UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// ConsumeReset marks a reset token as used if it is still active and
// unexpired, returning the owning account id. Racing consumers get
// ErrTokenSpent for all but the first.
func (r *LinkTokenRepo) ConsumeReset(ctx context.Context, tokenHash string) (uint64, error) {
	return r.consume(ctx, "password_reset_tokens", tokenHash)
}

// CreateVerify stores an email-verification token hash.
func (r *LinkTokenRepo) CreateVerify(ctx context.Context, accountID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO email_verify_tokens (account_id, token_hash, expires_at) VALUES (?,?,?)",
		accountID, tokenHash, exp.UTC())
	return err
}

// ConsumeVerify marks a verification token as used and returns its account.
func (r *LinkTokenRepo) ConsumeVerify(ctx context.Context, tokenHash string) (uint64, error) {
	return r.consume(ctx, "email_verify_tokens", tokenHash)
}

func (r *LinkTokenRepo) consume(ctx context.Context, table, tokenHash string) (uint64, error) {
	var accountID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT account_id FROM "+table+" WHERE token_hash=? LIMIT 1", tokenHash).Scan(&accountID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	// mark used only if currently unused and unexpired
	res, err := r.DB.ExecContext(ctx,
		"UPDATE "+table+" SET used_at=NOW() WHERE token_hash=? AND used_at IS NULL AND expires_at>NOW()",
		tokenHash)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrTokenSpent
	}
	return accountID, nil
}
