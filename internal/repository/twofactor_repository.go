package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/natalplan/auth-service/internal/model"
)

// TwoFactorRepo persists the one-to-one 2FA config and the backup-code batch
// for each account.
type TwoFactorRepo struct{ DB *sql.DB }

func NewTwoFactorRepo(db *sql.DB) *TwoFactorRepo { return &TwoFactorRepo{DB: db} }

// GetConfig returns the 2FA record for an account, or ErrNotFound when setup
// never started.
func (r *TwoFactorRepo) GetConfig(ctx context.Context, accountID uint64) (model.TwoFactorConfig, error) {
	var (
		cfg      model.TwoFactorConfig
		lastUsed sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT account_id,enabled,secret,last_used_at,created_at,updated_at FROM two_factor_configs WHERE account_id=? LIMIT 1",
		accountID).Scan(&cfg.AccountID, &cfg.Enabled, &cfg.Secret, &lastUsed, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return cfg, ErrNotFound
	}
	if err != nil {
		return cfg, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		cfg.LastUsedAt = &t
	}
	return cfg, nil
}

// UpsertSecret stores a fresh shared secret at setup-start. The record stays
// disabled until the first code verifies; re-running setup overwrites the
// pending secret.
func (r *TwoFactorRepo) UpsertSecret(ctx context.Context, accountID uint64, secret string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO two_factor_configs (account_id, enabled, secret) VALUES (?,0,?)
		 ON DUPLICATE KEY UPDATE secret=VALUES(secret), enabled=0`,
		accountID, secret)
	return err
}

// Activate enables 2FA after the first successful verification.
func (r *TwoFactorRepo) Activate(ctx context.Context, accountID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE two_factor_configs SET enabled=1 WHERE account_id=? AND secret<>''",
		accountID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Disable clears the secret and drops every backup code for the account.
func (r *TwoFactorRepo) Disable(ctx context.Context, accountID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		"UPDATE two_factor_configs SET enabled=0, secret='' WHERE account_id=?", accountID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM backup_codes WHERE account_id=?", accountID); err != nil {
		return err
	}
	return tx.Commit()
}

// TouchLastUsed records the acceptance of a code.
func (r *TwoFactorRepo) TouchLastUsed(ctx context.Context, accountID uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE two_factor_configs SET last_used_at=? WHERE account_id=?", at.UTC(), accountID)
	return err
}

// ReplaceBackupCodes deletes the account's unused codes and inserts the new
// batch in one transaction, so a regeneration can never leave a mixed set.
// Used codes are kept for the audit trail.
func (r *TwoFactorRepo) ReplaceBackupCodes(ctx context.Context, accountID uint64, hashes []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM backup_codes WHERE account_id=? AND used_at IS NULL", accountID); err != nil {
		return err
	}
	for _, h := range hashes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO backup_codes (account_id, code_hash) VALUES (?,?)", accountID, h); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListUnusedCodeHashes returns the hashes of codes still available.
func (r *TwoFactorRepo) ListUnusedCodeHashes(ctx context.Context, accountID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT code_hash FROM backup_codes WHERE account_id=? AND used_at IS NULL", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// ConsumeBackupCode marks a code as used, but only if it is currently
// unused. The conditional UPDATE makes consumption atomic: when two
// verifications race on the same code, exactly one sees RowsAffected=1 and
// the other receives ErrTokenSpent.
func (r *TwoFactorRepo) ConsumeBackupCode(ctx context.Context, accountID uint64, codeHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE backup_codes SET used_at=NOW() WHERE account_id=? AND code_hash=? AND used_at IS NULL",
		accountID, codeHash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTokenSpent
	}
	return nil
}
