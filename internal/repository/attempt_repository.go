package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/natalplan/auth-service/internal/model"
)

// AttemptRepo appends 2FA verification attempts and answers the
// recent-failure count queries behind the brute-force cooldown. Rows are
// never mutated after insert.
type AttemptRepo struct{ DB *sql.DB }

func NewAttemptRepo(db *sql.DB) *AttemptRepo { return &AttemptRepo{DB: db} }

// Insert appends one attempt row.
func (r *AttemptRepo) Insert(ctx context.Context, a model.TwoFactorAttempt) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO two_factor_attempts (account_id, success, ip, user_agent, kind) VALUES (?,?,?,?,?)",
		a.AccountID, a.Success, a.IP, a.UserAgent, a.Kind)
	return err
}

// CountRecentFailures returns the number of failed attempts for the
// (account, source IP) pair within the trailing window.
func (r *AttemptRepo) CountRecentFailures(ctx context.Context, accountID uint64, ip string, window time.Duration) (int, error) {
	since := time.Now().UTC().Add(-window)
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM two_factor_attempts WHERE account_id=? AND ip=? AND success=0 AND created_at>=?",
		accountID, ip, since).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return n, nil
}
