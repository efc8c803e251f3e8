package model

import "time"

// Account represents a row in the `accounts` table.  The email address is
// confidentiality-sensitive: the column stores an AES-256-GCM ciphertext and
// a separate deterministic HMAC digest (EmailHash) is kept for equality
// lookups.  Accounts are never hard-deleted; deactivation flips IsActive.
//
// Fields:
//  ID            – primary key identifier of the account.
//  EmailEnc      – encrypted email (base64 of nonce||ciphertext).
//  EmailHash     – HMAC-SHA256 hex digest of the normalized email, unique.
//  PasswordHash  – bcrypt hashed password.
//  IsActive      – whether the account is usable (soft-delete flag).
//  EmailVerified – whether the verification link was followed.
//  LastLoginAt   – timestamp of the last successful password check (nullable).
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Account struct {
	ID            uint64     // accounts.id
	EmailEnc      string     // accounts.email_enc
	EmailHash     string     // accounts.email_hash
	PasswordHash  string     // accounts.password_hash
	IsActive      bool       // accounts.is_active
	EmailVerified bool       // accounts.email_verified
	LastLoginAt   *time.Time // accounts.last_login_at (nullable)
	CreatedAt     time.Time  // accounts.created_at
	UpdatedAt     time.Time  // accounts.updated_at
}

// Usable reports whether the account may proceed past the password stage.
func (a Account) Usable() bool { return a.IsActive && a.EmailVerified }
