package handler

import (
	"context"              // provides context with cancellation for DB calls
	"errors"               // sentinel error comparisons
	"net/http"             // HTTP status codes and primitives
	"regexp"               // request field format validation
	"time"                 // timeouts for DB calls and token lifetimes

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/natalplan/auth-service/internal/audit"      // security-event log
	"github.com/natalplan/auth-service/internal/config"     // app configuration
	"github.com/natalplan/auth-service/internal/model"      // persistence row types
	q "github.com/natalplan/auth-service/internal/queue"    // mail event payloads
	"github.com/natalplan/auth-service/internal/repository" // sentinel errors
	"github.com/natalplan/auth-service/internal/utils"      // hashing, tokens, TOTP
)

// emailRe is a light sanity check; real validation happens when the
// verification mail is delivered.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLen = 8

// AuthHandler bundles dependencies for the registration, login, 2FA
// challenge and session endpoints. It is constructed once at startup.
type AuthHandler struct {
	Cfg      config.Config
	Sec      config.SecurityConfig
	Accounts AccountStore
	TwoFA    TwoFactorStore
	Attempts AttemptStore
	Tokens   LinkTokenStore
	Mail     MailDispatcher
	Events   *audit.Log
}

func NewAuthHandler(cfg config.Config, sec config.SecurityConfig, acc AccountStore, tfa TwoFactorStore, att AttemptStore, tok LinkTokenStore, mail MailDispatcher, events *audit.Log) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Sec: sec, Accounts: acc, TwoFA: tfa, Attempts: att, Tokens: tok, Mail: mail, Events: events}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}
type twoFactorVerifyReq struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Backup   bool   `json:"backup"` // true when the code is a backup code
	Remember bool   `json:"remember"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}
type loginResp struct {
	Requires2FA bool      `json:"requires_2fa"`
	User        *userPart `json:"user,omitempty"`
	Email       string    `json:"email,omitempty"` // echoed on the 2FA challenge
}

// Register creates an account and queues the verification mail. The account
// cannot log in until the link is followed.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "invalid body")
	}
	email := utils.NormalizeEmail(req.Email)
	if !emailRe.MatchString(email) || len(req.Password) < minPasswordLen {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "valid email and a password of at least 8 characters are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pwHash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	emailEnc, err := utils.EncryptEmail(h.Cfg.EmailEncKey, email)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	id, err := h.Accounts.Create(ctx, emailEnc, utils.EmailLookupHash(h.Cfg.EmailHashKey, email), pwHash)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, CodeConflict, "email already registered")
		}
		return internalError(c, h.Cfg, err)
	}

	// Verification link: store only the token hash, mail the raw token.
	raw, err := utils.RandomHex(48)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	if err := h.Tokens.CreateVerify(ctx, id, utils.HashToken(raw), time.Now().UTC().Add(24*time.Hour)); err != nil {
		return internalError(c, h.Cfg, err)
	}
	h.Mail.Dispatch(q.MailEvent{
		Kind:        q.MailKindEmailVerify,
		To:          email,
		Link:        h.Cfg.PublicBaseURL + "/v1/auth/verify-email?token=" + raw,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{"message": "account created, check your inbox to verify the address"})
}

// VerifyEmail consumes a verification token and activates login.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	raw := c.QueryParam("token")
	if raw == "" {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accountID, err := h.Tokens.ConsumeVerify(ctx, utils.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrTokenSpent) {
			h.Events.Record(audit.CategoryTokenReplay, c.RealIP(), c.Path(), "verify token invalid or spent", c.Request().UserAgent())
			return fail(c, http.StatusBadRequest, CodeInvalidInput, "invalid or expired token")
		}
		return internalError(c, h.Cfg, err)
	}
	if err := h.Accounts.MarkEmailVerified(ctx, accountID); err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

// Login runs the password stage of the state machine. Three outcomes:
//   - rejected (generic invalid_credentials, or account_not_usable)
//   - 2FA challenge (no tokens yet, resumed by email via Verify2FA)
//   - authenticated (both session cookies set)
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "invalid body")
	}
	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.GetByEmailHash(ctx, utils.EmailLookupHash(h.Cfg.EmailHashKey, email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same body as a wrong password: no account enumeration.
			h.Events.Record(audit.CategoryAuthFailure, c.RealIP(), c.Path(), "unknown email", c.Request().UserAgent())
			return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
		}
		return internalError(c, h.Cfg, err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, req.Password) {
		h.Events.Record(audit.CategoryAuthFailure, c.RealIP(), c.Path(), "wrong password", c.Request().UserAgent())
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
	}
	// The unverified/inactive case is surfaced distinctly: the remediation
	// (verify the address) differs from "check your password".
	if !acc.Usable() {
		return fail(c, http.StatusForbidden, CodeAccountNotUsable, "account is not active or the email address is unverified")
	}

	if err := h.Accounts.TouchLastLogin(ctx, acc.ID, time.Now().UTC()); err != nil {
		return internalError(c, h.Cfg, err)
	}

	tfa, err := h.TwoFA.GetConfig(ctx, acc.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return internalError(c, h.Cfg, err)
	}
	if err == nil && tfa.Enabled {
		// Challenge state: no tokens yet. The client resumes by email.
		return c.JSON(http.StatusOK, loginResp{Requires2FA: true, Email: email})
	}

	return h.issueSession(c, utils.Identity{AccountID: acc.ID, Email: email}, req.Remember)
}

// Verify2FA runs the second stage of the state machine for accounts with 2FA
// enabled. The challenge is resumed by email; the client never sends an
// account id.
func (h *AuthHandler) Verify2FA(c echo.Context) error {
	var req twoFactorVerifyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "invalid body")
	}
	email := utils.NormalizeEmail(req.Email)

	// Format checks fail fast, before any database access.
	if email == "" || req.Code == "" {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "email/code required")
	}
	if req.Backup && !utils.ValidBackupFormat(req.Code) {
		h.Events.Record(audit.CategoryBadInput, c.RealIP(), c.Path(), "malformed backup code", c.Request().UserAgent())
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "backup codes are 8 letters or digits")
	}
	if !req.Backup && !utils.ValidTOTPFormat(req.Code) {
		h.Events.Record(audit.CategoryBadInput, c.RealIP(), c.Path(), "malformed totp code", c.Request().UserAgent())
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "codes are 6 digits")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.GetByEmailHash(ctx, utils.EmailLookupHash(h.Cfg.EmailHashKey, email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid code")
		}
		return internalError(c, h.Cfg, err)
	}
	if !acc.Usable() {
		return fail(c, http.StatusForbidden, CodeAccountNotUsable, "account is not active or the email address is unverified")
	}
	tfa, err := h.TwoFA.GetConfig(ctx, acc.ID)
	if err != nil || !tfa.Enabled {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return internalError(c, h.Cfg, err)
		}
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid code")
	}

	// Brute-force gate: too many recent failures for this (account, IP)
	// short-circuits before the code is even evaluated.
	ip := c.RealIP()
	failures, err := h.Attempts.CountRecentFailures(ctx, acc.ID, ip, h.Sec.TwoFAWindow)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	if failures >= h.Sec.TwoFAMaxFailures {
		h.Events.Record(audit.CategoryRateLimited, ip, c.Path(), "2fa cooldown active", c.Request().UserAgent())
		return fail(c, http.StatusTooManyRequests, CodeRateLimited, "too many failed attempts, try again later")
	}

	kind := model.AttemptKindTOTP
	if req.Backup {
		kind = model.AttemptKindBackup
	}
	ok := h.evaluateCode(ctx, acc.ID, tfa.Secret, req.Code, req.Backup)

	// Attempt rows are append-only; failures feed the cooldown counter.
	accID := acc.ID
	if err := h.Attempts.Insert(ctx, model.TwoFactorAttempt{
		AccountID: &accID,
		Success:   ok,
		IP:        ip,
		UserAgent: c.Request().UserAgent(),
		Kind:      kind,
	}); err != nil {
		return internalError(c, h.Cfg, err)
	}

	if !ok {
		h.Events.Record(audit.Category2FAFailure, ip, c.Path(), "invalid "+kind+" code", c.Request().UserAgent())
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid code")
	}

	if err := h.TwoFA.TouchLastUsed(ctx, acc.ID, time.Now().UTC()); err != nil {
		return internalError(c, h.Cfg, err)
	}
	return h.issueSession(c, utils.Identity{AccountID: acc.ID, Email: email}, req.Remember)
}

// evaluateCode validates a TOTP or backup code. Backup codes are consumed
// with an atomic mark-used-if-unused update, so under concurrent attempts on
// the same code exactly one succeeds.
func (h *AuthHandler) evaluateCode(ctx context.Context, accountID uint64, secret, code string, backup bool) bool {
	if !backup {
		return utils.VerifyTOTPCode(secret, code, h.Sec.TOTPSkewSteps)
	}
	hashes, err := h.TwoFA.ListUnusedCodeHashes(ctx, accountID)
	if err != nil || !utils.VerifyBackupCode(code, hashes) {
		return false
	}
	return h.TwoFA.ConsumeBackupCode(ctx, accountID, utils.HashBackupCode(code)) == nil
}

// issueSession mints the access+refresh pair and sets both cookies. Tokens
// are only ever issued together, at the final transition of the flow.
func (h *AuthHandler) issueSession(c echo.Context, id utils.Identity, remember bool) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, id, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	ttlDays := h.Cfg.RefreshTTLDays
	if remember {
		ttlDays = h.Cfg.RememberTTLDays
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, id, remember, ttlDays)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	setSessionCookies(c, h.Cfg, access, refresh)
	return c.JSON(http.StatusOK, loginResp{
		Requires2FA: false,
		User:        &userPart{ID: id.AccountID, Email: id.Email},
	})
}

// Refresh exchanges a valid refresh cookie for a fresh access cookie. The
// refresh token itself is reused, not rotated; its remember-derived lifetime
// is preserved.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return fail(c, http.StatusUnauthorized, CodeUnauthenticated, "missing refresh token")
	}
	claims, ok := utils.VerifyToken(h.Cfg.JWTSecret, cookie.Value, utils.TokenTypeRefresh)
	if !ok {
		h.Events.Record(audit.CategoryAuthFailure, c.RealIP(), c.Path(), "invalid refresh token", c.Request().UserAgent())
		return fail(c, http.StatusUnauthorized, CodeUnauthenticated, "invalid refresh token")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, claims.Identity, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	c.SetCookie(sessionCookie(h.Cfg, AccessCookieName, access.Token, access.Exp))
	return c.JSON(http.StatusOK, echo.Map{"message": "access token refreshed"})
}

// Logout clears both session cookies. With stateless tokens there is nothing
// to revoke server-side.
func (h *AuthHandler) Logout(c echo.Context) error {
	clearSessionCookies(c, h.Cfg)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity resolved by the session middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"account_id": c.Get("account_id"),
		"email":      c.Get("email"),
	})
}
