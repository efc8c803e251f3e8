package repository

import (
	"context"
	"database/sql"
)

// EntitlementRepo answers subscription checks for the authorization gate.
// The billing system writes the subscriptions table; this service only reads
// it.
type EntitlementRepo struct{ DB *sql.DB }

func NewEntitlementRepo(db *sql.DB) *EntitlementRepo { return &EntitlementRepo{DB: db} }

// HasActive reports whether the account holds an unexpired subscription.
func (r *EntitlementRepo) HasActive(ctx context.Context, accountID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscriptions WHERE account_id=? AND status='active' AND (expires_at IS NULL OR expires_at>NOW())",
		accountID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
