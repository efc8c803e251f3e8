package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/natalplan/auth-service/internal/utils" // token verification
)

// SessionAuth returns an Echo middleware that resolves the caller's identity
// from the access-token cookie (with an Authorization: Bearer fallback for
// non-browser clients) and injects it into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers on
// protected routes read the identity via `c.Get("account_id")` and
// `c.Get("email")`.  Any verification failure — missing, malformed, expired
// or wrongly-typed token — is answered with 401 before the handler runs.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Prefer the HTTP-only cookie set at login.  Fall back to a
			// Bearer header so API clients without a cookie jar can call
			// protected endpoints too.
			var raw string
			if cookie, err := c.Cookie("access_token"); err == nil && cookie.Value != "" {
				raw = cookie.Value
			} else if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "missing access token"})
			}

			// VerifyToken checks signature, expiry and the token type.  It
			// never returns an error; every failure is uniformly "absent".
			claims, ok := utils.VerifyToken(secret, raw, utils.TokenTypeAccess)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "invalid access token"})
			}

			// Store the resolved identity in the context for handlers and
			// downstream middleware (ownership gate, rate limiter keys).
			c.Set("account_id", claims.AccountID)
			c.Set("email", claims.Email)
			return next(c)
		}
	}
}
