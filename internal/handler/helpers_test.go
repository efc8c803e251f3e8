package handler

// In-memory fakes for the store interfaces in deps.go, plus request helpers.
// The login flow, the 2FA challenge and the recovery endpoints are exercised
// end to end against these without a database.

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/natalplan/auth-service/internal/audit"
	"github.com/natalplan/auth-service/internal/config"
	"github.com/natalplan/auth-service/internal/model"
	q "github.com/natalplan/auth-service/internal/queue"
	"github.com/natalplan/auth-service/internal/repository"
	"github.com/natalplan/auth-service/internal/utils"
)

type linkToken struct {
	accountID uint64
	expiresAt time.Time
	used      bool
}

// memStore implements every store interface the handlers depend on.
type memStore struct {
	mu       sync.Mutex
	nextID   uint64
	accounts map[uint64]model.Account
	byHash   map[string]uint64
	tfa      map[uint64]model.TwoFactorConfig
	codes    map[uint64]map[string]bool // code hash -> consumed
	attempts []model.TwoFactorAttempt
	resets   map[string]*linkToken
	verifies map[string]*linkToken
	mails    []q.MailEvent
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[uint64]model.Account),
		byHash:   make(map[string]uint64),
		tfa:      make(map[uint64]model.TwoFactorConfig),
		codes:    make(map[uint64]map[string]bool),
		resets:   make(map[string]*linkToken),
		verifies: make(map[string]*linkToken),
	}
}

// ----- AccountStore -----

func (m *memStore) Create(_ context.Context, emailEnc, emailHash, passwordHash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHash[emailHash]; ok {
		return 0, repository.ErrEmailExists
	}
	m.nextID++
	now := time.Now().UTC()
	m.accounts[m.nextID] = model.Account{
		ID: m.nextID, EmailEnc: emailEnc, EmailHash: emailHash, PasswordHash: passwordHash,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	m.byHash[emailHash] = m.nextID
	return m.nextID, nil
}

func (m *memStore) GetByEmailHash(_ context.Context, emailHash string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHash[emailHash]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return m.accounts[id], nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return acc, nil
}

func (m *memStore) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts[id]
	acc.LastLoginAt = &at
	m.accounts[id] = acc
	return nil
}

func (m *memStore) MarkEmailVerified(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts[id]
	acc.EmailVerified = true
	m.accounts[id] = acc
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id uint64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts[id]
	acc.PasswordHash = passwordHash
	m.accounts[id] = acc
	return nil
}

// ----- TwoFactorStore -----

func (m *memStore) GetConfig(_ context.Context, accountID uint64) (model.TwoFactorConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.tfa[accountID]
	if !ok {
		return model.TwoFactorConfig{}, repository.ErrNotFound
	}
	return cfg, nil
}

func (m *memStore) UpsertSecret(_ context.Context, accountID uint64, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tfa[accountID] = model.TwoFactorConfig{AccountID: accountID, Secret: secret}
	return nil
}

func (m *memStore) Activate(_ context.Context, accountID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.tfa[accountID]
	if !ok || cfg.Secret == "" {
		return repository.ErrNotFound
	}
	cfg.Enabled = true
	m.tfa[accountID] = cfg
	return nil
}

func (m *memStore) Disable(_ context.Context, accountID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tfa, accountID)
	delete(m.codes, accountID)
	return nil
}

func (m *memStore) TouchLastUsed(_ context.Context, accountID uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.tfa[accountID]
	cfg.LastUsedAt = &at
	m.tfa[accountID] = cfg
	return nil
}

func (m *memStore) ReplaceBackupCodes(_ context.Context, accountID uint64, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		batch[h] = false
	}
	m.codes[accountID] = batch
	return nil
}

func (m *memStore) ListUnusedCodeHashes(_ context.Context, accountID uint64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for h, used := range m.codes[accountID] {
		if !used {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) ConsumeBackupCode(_ context.Context, accountID uint64, codeHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used, ok := m.codes[accountID][codeHash]
	if !ok || used {
		return repository.ErrTokenSpent
	}
	m.codes[accountID][codeHash] = true
	return nil
}

// ----- AttemptStore -----

func (m *memStore) Insert(_ context.Context, a model.TwoFactorAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt = time.Now().UTC()
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *memStore) CountRecentFailures(_ context.Context, accountID uint64, ip string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-window)
	n := 0
	for _, a := range m.attempts {
		if a.AccountID != nil && *a.AccountID == accountID && a.IP == ip && !a.Success && a.CreatedAt.After(cutoff) {
			n++
		}
	}
	return n, nil
}

// ----- LinkTokenStore -----

func (m *memStore) CreateReset(_ context.Context, accountID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tok := range m.resets {
		if tok.accountID == accountID && !tok.used {
			tok.used = true
		}
	}
	m.resets[tokenHash] = &linkToken{accountID: accountID, expiresAt: exp}
	return nil
}

func (m *memStore) ConsumeReset(_ context.Context, tokenHash string) (uint64, error) {
	return m.consume(m.resets, tokenHash)
}

func (m *memStore) CreateVerify(_ context.Context, accountID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifies[tokenHash] = &linkToken{accountID: accountID, expiresAt: exp}
	return nil
}

func (m *memStore) ConsumeVerify(_ context.Context, tokenHash string) (uint64, error) {
	return m.consume(m.verifies, tokenHash)
}

func (m *memStore) consume(tokens map[string]*linkToken, tokenHash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := tokens[tokenHash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if tok.used || time.Now().UTC().After(tok.expiresAt) {
		return 0, repository.ErrTokenSpent
	}
	tok.used = true
	return tok.accountID, nil
}

// ----- MailDispatcher -----

func (m *memStore) Dispatch(ev q.MailEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, ev)
}

func (m *memStore) sentMails() []q.MailEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]q.MailEvent, len(m.mails))
	copy(out, m.mails)
	return out
}

// ----- harness -----

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		PublicBaseURL:   "http://localhost:8080",
		JWTSecret:       "test-signing-secret",
		EmailEncKey:     "test-enc-key",
		EmailHashKey:    "test-hash-key",
		TOTPIssuer:      "NatalPlan",
		AccessTTLMin:    15,
		RefreshTTLDays:  7,
		RememberTTLDays: 30,
		BcryptCost:      bcrypt.MinCost,
	}
}

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		TwoFAMaxFailures: 5,
		TwoFAWindow:      15 * time.Minute,
		TOTPSkewSteps:    1,
		BackupCodeCount:  10,
		ResetTokenTTL:    time.Hour,
	}
}

func newTestAuth(t *testing.T) (*AuthHandler, *memStore) {
	t.Helper()
	st := newMemStore()
	h := NewAuthHandler(testConfig(), testSecurityConfig(), st, st, st, st, st, audit.NewLog(100))
	return h, st
}

// seedAccount registers an account directly in the store and returns its id.
func seedAccount(t *testing.T, st *memStore, cfg config.Config, email, password string, verified bool) uint64 {
	t.Helper()
	pwHash, err := utils.HashPassword(password, cfg.BcryptCost)
	require.NoError(t, err)
	enc, err := utils.EncryptEmail(cfg.EmailEncKey, email)
	require.NoError(t, err)
	id, err := st.Create(context.Background(), enc, utils.EmailLookupHash(cfg.EmailHashKey, email), pwHash)
	require.NoError(t, err)
	if verified {
		require.NoError(t, st.MarkEmailVerified(context.Background(), id))
	}
	return id
}

// enableTOTP seeds an active 2FA config and returns the shared secret.
func enableTOTP(t *testing.T, st *memStore, accountID uint64) string {
	t.Helper()
	secret, _, err := utils.GenerateTOTPSecret("NatalPlan", "seed")
	require.NoError(t, err)
	require.NoError(t, st.UpsertSecret(context.Background(), accountID, secret))
	require.NoError(t, st.Activate(context.Background(), accountID))
	return secret
}

// doJSON runs one handler against a synthetic JSON request and returns the
// recorder holding the response.
func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

// currentTOTP derives the six-digit code for a secret at the current step.
func currentTOTP(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// flipLastDigit turns a valid code into a well-formed wrong one.
func flipLastDigit(code string) string {
	b := []byte(code)
	b[len(b)-1] = '0' + (b[len(b)-1]-'0'+1)%10
	return string(b)
}

// responseCookie finds a Set-Cookie entry by name, nil when absent.
func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
