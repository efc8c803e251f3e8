package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/natalplan/auth-service/internal/audit"
	"github.com/natalplan/auth-service/internal/repository"
	"github.com/natalplan/auth-service/internal/utils"
)

// TwoFactorHandler owns the authenticated 2FA lifecycle: setup, activation,
// disable and backup-code regeneration. All routes sit behind the session
// middleware; the account id comes from the verified access token.
type TwoFactorHandler struct {
	*AuthHandler
}

func NewTwoFactorHandler(a *AuthHandler) *TwoFactorHandler { return &TwoFactorHandler{AuthHandler: a} }

type activateReq struct {
	Code string `json:"code"`
}
type disableReq struct {
	Password string `json:"password"`
	Code     string `json:"code"`
	Backup   bool   `json:"backup"`
}

// currentIdentity reads the identity stored by the session middleware.
func currentIdentity(c echo.Context) (utils.Identity, bool) {
	id, ok1 := c.Get("account_id").(uint64)
	email, ok2 := c.Get("email").(string)
	if !ok1 || !ok2 || id == 0 {
		return utils.Identity{}, false
	}
	return utils.Identity{AccountID: id, Email: email}, true
}

// Setup starts (or restarts) 2FA enrollment: a fresh shared secret is stored
// disabled and returned together with the otpauth:// URI. The client renders
// the URI as a QR code; nothing is enforced until Activate.
func (h *TwoFactorHandler) Setup(c echo.Context) error {
	id, ok := currentIdentity(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, CodeUnauthenticated, "unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	secret, uri, err := utils.GenerateTOTPSecret(h.Cfg.TOTPIssuer, id.Email)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	if err := h.TwoFA.UpsertSecret(ctx, id.AccountID, secret); err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"secret":      secret,
		"otpauth_url": uri,
	})
}

// Activate turns 2FA on after the user proves possession of the secret with
// a first valid code. A fresh backup-code batch is generated and the
// plaintext codes are returned exactly once.
func (h *TwoFactorHandler) Activate(c echo.Context) error {
	id, ok := currentIdentity(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, CodeUnauthenticated, "unauthenticated")
	}
	var req activateReq
	if err := c.Bind(&req); err != nil || !utils.ValidTOTPFormat(req.Code) {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "codes are 6 digits")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tfa, err := h.TwoFA.GetConfig(ctx, id.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusConflict, CodeConflict, "2fa setup has not been started")
		}
		return internalError(c, h.Cfg, err)
	}
	if tfa.Secret == "" {
		return fail(c, http.StatusConflict, CodeConflict, "2fa setup has not been started")
	}
	if !utils.VerifyTOTPCode(tfa.Secret, req.Code, h.Sec.TOTPSkewSteps) {
		h.Events.Record(audit.Category2FAFailure, c.RealIP(), c.Path(), "activation code rejected", c.Request().UserAgent())
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid code")
	}

	if err := h.TwoFA.Activate(ctx, id.AccountID); err != nil {
		return internalError(c, h.Cfg, err)
	}
	if err := h.TwoFA.TouchLastUsed(ctx, id.AccountID, time.Now().UTC()); err != nil {
		return internalError(c, h.Cfg, err)
	}
	codes, err := h.replaceBackupCodes(ctx, id.AccountID)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "2fa enabled",
		"backup_codes": codes, // shown once, only hashes are stored
	})
}

// Disable turns 2FA off. It demands the password and a currently valid code
// (TOTP or backup) so a hijacked session alone cannot weaken the account.
func (h *TwoFactorHandler) Disable(c echo.Context) error {
	id, ok := currentIdentity(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, CodeUnauthenticated, "unauthenticated")
	}
	var req disableReq
	if err := c.Bind(&req); err != nil || req.Password == "" || req.Code == "" {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "password and code required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.GetByID(ctx, id.AccountID)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, req.Password) {
		h.Events.Record(audit.CategoryAuthFailure, c.RealIP(), c.Path(), "wrong password on 2fa disable", c.Request().UserAgent())
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
	}
	tfa, err := h.TwoFA.GetConfig(ctx, id.AccountID)
	if err != nil || !tfa.Enabled {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return internalError(c, h.Cfg, err)
		}
		return fail(c, http.StatusConflict, CodeConflict, "2fa is not enabled")
	}
	if !h.evaluateCode(ctx, id.AccountID, tfa.Secret, req.Code, req.Backup) {
		h.Events.Record(audit.Category2FAFailure, c.RealIP(), c.Path(), "invalid code on 2fa disable", c.Request().UserAgent())
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid code")
	}

	if err := h.TwoFA.Disable(ctx, id.AccountID); err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "2fa disabled"})
}

// RegenerateBackupCodes invalidates every unused code and issues a fresh
// batch. A valid TOTP code is required.
func (h *TwoFactorHandler) RegenerateBackupCodes(c echo.Context) error {
	id, ok := currentIdentity(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, CodeUnauthenticated, "unauthenticated")
	}
	var req activateReq
	if err := c.Bind(&req); err != nil || !utils.ValidTOTPFormat(req.Code) {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "codes are 6 digits")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tfa, err := h.TwoFA.GetConfig(ctx, id.AccountID)
	if err != nil || !tfa.Enabled {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return internalError(c, h.Cfg, err)
		}
		return fail(c, http.StatusConflict, CodeConflict, "2fa is not enabled")
	}
	if !utils.VerifyTOTPCode(tfa.Secret, req.Code, h.Sec.TOTPSkewSteps) {
		h.Events.Record(audit.Category2FAFailure, c.RealIP(), c.Path(), "invalid code on backup regeneration", c.Request().UserAgent())
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid code")
	}

	codes, err := h.replaceBackupCodes(ctx, id.AccountID)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"backup_codes": codes})
}

// replaceBackupCodes generates a batch, persists the hashes (replacing any
// unused codes) and returns the plaintext codes.
func (h *TwoFactorHandler) replaceBackupCodes(ctx context.Context, accountID uint64) ([]string, error) {
	pairs, err := utils.GenerateBackupCodes(h.Sec.BackupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(pairs))
	codes := make([]string, len(pairs))
	for i, p := range pairs {
		hashes[i] = p.Hash
		codes[i] = p.Code
	}
	if err := h.TwoFA.ReplaceBackupCodes(ctx, accountID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}
