package model

import "time"

// PasswordResetToken models an entry in the `password_reset_tokens` table.
// At most one active (unused, unexpired) token exists per account: inserting
// a new one invalidates any prior active tokens.  The plain token travels in
// the reset link; only its SHA-256 hash is stored.
//
// Fields:
//  ID        – primary key identifier.
//  AccountID – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp (~1 hour after issue).
//  UsedAt    – when the token was consumed (null if still active).
//  CreatedAt – timestamp of creation.
type PasswordResetToken struct {
	ID        uint64     // password_reset_tokens.id
	AccountID uint64     // password_reset_tokens.account_id
	TokenHash string     // password_reset_tokens.token_hash
	ExpiresAt time.Time  // password_reset_tokens.expires_at
	UsedAt    *time.Time // password_reset_tokens.used_at (nullable)
	CreatedAt time.Time  // password_reset_tokens.created_at
}

// EmailVerifyToken models an entry in the `email_verify_tokens` table.  It is
// issued at registration and consumed when the verification link is followed.
type EmailVerifyToken struct {
	ID        uint64     // email_verify_tokens.id
	AccountID uint64     // email_verify_tokens.account_id
	TokenHash string     // email_verify_tokens.token_hash
	ExpiresAt time.Time  // email_verify_tokens.expires_at
	UsedAt    *time.Time // email_verify_tokens.used_at (nullable)
	CreatedAt time.Time  // email_verify_tokens.created_at
}
