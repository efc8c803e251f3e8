package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/natalplan/auth-service/internal/audit"
	q "github.com/natalplan/auth-service/internal/queue"
	"github.com/natalplan/auth-service/internal/repository"
	"github.com/natalplan/auth-service/internal/utils"
)

type resetRequestReq struct {
	Email string `json:"email"`
}
type resetConfirmReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// resetRequestedMsg is returned whether or not the address is registered, so
// the endpoint cannot be used to probe for accounts.
const resetRequestedMsg = "if that address is registered, a reset link is on its way"

// RequestPasswordReset issues a reset link. Creating a new token invalidates
// any prior active token for the account; the link expires after about an
// hour and works once.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "invalid body")
	}
	email := utils.NormalizeEmail(req.Email)
	if !emailRe.MatchString(email) {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "valid email required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.GetByEmailHash(ctx, utils.EmailLookupHash(h.Cfg.EmailHashKey, email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Identical response body to the registered case.
			return c.JSON(http.StatusOK, echo.Map{"message": resetRequestedMsg})
		}
		return internalError(c, h.Cfg, err)
	}

	raw, err := utils.RandomHex(48)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	if err := h.Tokens.CreateReset(ctx, acc.ID, utils.HashToken(raw), time.Now().UTC().Add(h.Sec.ResetTokenTTL)); err != nil {
		return internalError(c, h.Cfg, err)
	}
	h.Mail.Dispatch(q.MailEvent{
		Kind:        q.MailKindPasswordReset,
		To:          email,
		Link:        h.Cfg.PublicBaseURL + "/reset-password?token=" + raw,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"message": resetRequestedMsg})
}

// ConfirmPasswordReset consumes a reset token and replaces the password.
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "token required")
	}
	if len(req.Password) < minPasswordLen {
		return fail(c, http.StatusBadRequest, CodeInvalidInput, "password must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accountID, err := h.Tokens.ConsumeReset(ctx, utils.HashToken(req.Token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrTokenSpent) {
			h.Events.Record(audit.CategoryTokenReplay, c.RealIP(), c.Path(), "reset token invalid or spent", c.Request().UserAgent())
			return fail(c, http.StatusBadRequest, CodeInvalidInput, "invalid or expired token")
		}
		return internalError(c, h.Cfg, err)
	}

	pwHash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	if err := h.Accounts.UpdatePassword(ctx, accountID, pwHash); err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
