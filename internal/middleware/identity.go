package middleware

// identity.go defines helper functions shared across middleware files: the
// account-id extraction used by the ownership gate and the identifier
// composition used by the rate limiter ("user:<id>" for authenticated
// callers, "ip:<address>" otherwise).

import (
	"github.com/labstack/echo/v4"

	"github.com/natalplan/auth-service/internal/ratelimit"
)

// currentAccountID extracts the authenticated account id from context. It
// returns (0, false) when no verified session is present.
func currentAccountID(c echo.Context) (uint64, bool) {
	if v := c.Get("account_id"); v != nil {
		if id, ok := v.(uint64); ok && id != 0 {
			return id, true
		}
	}
	return 0, false
}

// limiterIdentifier composes the rate-limit key for the caller.
func limiterIdentifier(c echo.Context) string {
	if id, ok := currentAccountID(c); ok {
		return ratelimit.UserKey(id)
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return ratelimit.IPKey(ip)
}
