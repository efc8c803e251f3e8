package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/natalplan/auth-service/internal/config"
	"github.com/natalplan/auth-service/internal/utils"
)

// Machine-distinguishable error categories. The credentials category is
// deliberately coarse: unknown user, wrong password and wrong 2FA code all
// map to it so responses cannot be used to enumerate accounts.
const (
	CodeInvalidInput       = "invalid_input"
	CodeUnauthenticated    = "unauthenticated"
	CodeForbidden          = "forbidden"
	CodeInvalidCredentials = "invalid_credentials"
	CodeAccountNotUsable   = "account_not_usable"
	CodeRateLimited        = "rate_limited"
	CodeConflict           = "conflict"
	CodeInternal           = "internal"
)

// Session cookie names.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// fail writes a structured error body. Every expected failure goes through
// here; nothing in the handlers panics across the transport boundary.
func fail(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}

// internalError logs the real cause server-side and returns a sanitized
// body. Detail is only echoed outside production.
func internalError(c echo.Context, cfg config.Config, err error) error {
	c.Logger().Errorf("internal error on %s: %v", c.Path(), err)
	msg := "something went wrong"
	if !cfg.IsProd() {
		msg = err.Error()
	}
	return fail(c, http.StatusInternalServerError, CodeInternal, msg)
}

// sessionCookie builds one HTTP-only session cookie. Secure is only set in
// production so local development over plain HTTP keeps working.
func sessionCookie(cfg config.Config, name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProd(),
		SameSite: http.SameSiteLaxMode,
	}
}

// setSessionCookies attaches both tokens. Tokens are only ever set together;
// no flow issues one without the other.
func setSessionCookies(c echo.Context, cfg config.Config, access, refresh utils.SignedToken) {
	c.SetCookie(sessionCookie(cfg, AccessCookieName, access.Token, access.Exp))
	c.SetCookie(sessionCookie(cfg, RefreshCookieName, refresh.Token, refresh.Exp))
}

// clearSessionCookies expires both cookies immediately.
func clearSessionCookies(c echo.Context, cfg config.Config) {
	past := time.Now().Add(-time.Hour)
	c.SetCookie(sessionCookie(cfg, AccessCookieName, "", past))
	c.SetCookie(sessionCookie(cfg, RefreshCookieName, "", past))
}
