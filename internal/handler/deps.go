package handler

// Handlers depend on narrow store interfaces rather than concrete
// repositories so the login flow can be exercised in tests with in-memory
// fakes. The repository package provides the production implementations.

import (
	"context"
	"time"

	"github.com/natalplan/auth-service/internal/model"
	q "github.com/natalplan/auth-service/internal/queue"
)

// AccountStore is the persistence contract for accounts.
type AccountStore interface {
	Create(ctx context.Context, emailEnc, emailHash, passwordHash string) (uint64, error)
	GetByEmailHash(ctx context.Context, emailHash string) (model.Account, error)
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
	MarkEmailVerified(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// TwoFactorStore is the persistence contract for 2FA configs and backup codes.
type TwoFactorStore interface {
	GetConfig(ctx context.Context, accountID uint64) (model.TwoFactorConfig, error)
	UpsertSecret(ctx context.Context, accountID uint64, secret string) error
	Activate(ctx context.Context, accountID uint64) error
	Disable(ctx context.Context, accountID uint64) error
	TouchLastUsed(ctx context.Context, accountID uint64, at time.Time) error
	ReplaceBackupCodes(ctx context.Context, accountID uint64, hashes []string) error
	ListUnusedCodeHashes(ctx context.Context, accountID uint64) ([]string, error)
	ConsumeBackupCode(ctx context.Context, accountID uint64, codeHash string) error
}

// AttemptStore appends and counts 2FA verification attempts.
type AttemptStore interface {
	Insert(ctx context.Context, a model.TwoFactorAttempt) error
	CountRecentFailures(ctx context.Context, accountID uint64, ip string, window time.Duration) (int, error)
}

// LinkTokenStore persists single-use reset and verification tokens.
type LinkTokenStore interface {
	CreateReset(ctx context.Context, accountID uint64, tokenHash string, exp time.Time) error
	ConsumeReset(ctx context.Context, tokenHash string) (uint64, error)
	CreateVerify(ctx context.Context, accountID uint64, tokenHash string, exp time.Time) error
	ConsumeVerify(ctx context.Context, tokenHash string) (uint64, error)
}

// MailDispatcher is the fire-and-forget notification boundary.
type MailDispatcher interface {
	Dispatch(ev q.MailEvent)
}
