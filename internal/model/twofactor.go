package model

import "time"

// TwoFactorConfig is the one-to-one 2FA record for an account.  The secret is
// present as soon as setup starts, before activation; Enabled only becomes
// true after the first successful verification.  Enabled=true implies a
// non-empty secret.
//
// Fields:
//  AccountID  – owning account (also the primary key).
//  Enabled    – whether 2FA gates the login flow.
//  Secret     – base32 TOTP shared secret ("" when 2FA was never set up).
//  LastUsedAt – when a code was last accepted (nullable).
//  CreatedAt  – when setup started.
//  UpdatedAt  – timestamp of last update.
type TwoFactorConfig struct {
	AccountID  uint64     // two_factor_configs.account_id
	Enabled    bool       // two_factor_configs.enabled
	Secret     string     // two_factor_configs.secret
	LastUsedAt *time.Time // two_factor_configs.last_used_at (nullable)
	CreatedAt  time.Time  // two_factor_configs.created_at
	UpdatedAt  time.Time  // two_factor_configs.updated_at
}

// BackupCode models an entry in the `backup_codes` table.  Only the SHA-256
// digest of a code is stored; the plaintext is returned to the user exactly
// once at generation time.  A code is consumable at most once.
//
// Fields:
//  ID        – primary key identifier.
//  AccountID – owning account.
//  CodeHash  – SHA-256 hex digest of the uppercased code.
//  UsedAt    – when the code was consumed (null while unused).
//  CreatedAt – timestamp of creation.
type BackupCode struct {
	ID        uint64     // backup_codes.id
	AccountID uint64     // backup_codes.account_id
	CodeHash  string     // backup_codes.code_hash
	UsedAt    *time.Time // backup_codes.used_at (nullable)
	CreatedAt time.Time  // backup_codes.created_at
}

// Code kinds recorded on a TwoFactorAttempt.
const (
	AttemptKindTOTP   = "totp"
	AttemptKindBackup = "backup"
)

// TwoFactorAttempt is an append-only audit row written for every 2FA
// verification, successful or not.  Recent failed rows for an (account, IP)
// pair drive the brute-force cooldown.
//
// Fields:
//  ID        – primary key identifier.
//  AccountID – account the attempt targeted (nullable when unknown).
//  Success   – whether the code was accepted.
//  IP        – source address of the request.
//  UserAgent – client User-Agent header.
//  Kind      – "totp" or "backup".
//  CreatedAt – timestamp of the attempt.
type TwoFactorAttempt struct {
	ID        uint64    // two_factor_attempts.id
	AccountID *uint64   // two_factor_attempts.account_id (nullable)
	Success   bool      // two_factor_attempts.success
	IP        string    // two_factor_attempts.ip
	UserAgent string    // two_factor_attempts.user_agent
	Kind      string    // two_factor_attempts.kind
	CreatedAt time.Time // two_factor_attempts.created_at
}
