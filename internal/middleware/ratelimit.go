package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/natalplan/auth-service/internal/audit"
	"github.com/natalplan/auth-service/internal/config"
	"github.com/natalplan/auth-service/internal/ratelimit"
)

// RateLimit consumes one point from the named budget before the handler
// runs. Exhaustion is answered with 429 and recorded as a security event;
// the limiter itself never fails a request — shared-store outages degrade
// to in-process counters inside the Limiter.
func RateLimit(l *ratelimit.Limiter, rule config.LimiterRule, events *audit.Log) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := l.Check(c.Request().Context(), rule, limiterIdentifier(c))

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.Points))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			if !res.Allowed {
				secs := int(math.Ceil(float64(res.ResetMs) / 1000.0))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				events.Record(audit.CategoryRateLimited, c.RealIP(), c.Path(),
					"budget "+rule.Name+" exhausted", c.Request().UserAgent())
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate_limited",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}
