package middleware // middleware provides shared request processing for handlers

import (
	"context"  // checker calls are bounded by the request context
	"net/http" // http package defines standard HTTP status codes
	"strconv"  // path-parameter parsing for the ownership check

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// EntitlementChecker answers whether an account holds an active
// subscription.  The billing system behind it is an external collaborator;
// this package only consumes the predicate.
type EntitlementChecker interface {
	HasActive(ctx context.Context, accountID uint64) (bool, error)
}

// RequireOwner returns a middleware that enforces that the authenticated
// account is the one named by the given path parameter.  It assumes
// SessionAuth already ran and stored the identity in the context.  A
// mismatch is a 403; the wrapped handler never runs on any failure path.
func RequireOwner(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			callerID, ok := currentAccountID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "missing session"})
			}
			ownerID, err := strconv.ParseUint(c.Param(param), 10, 64)
			if err != nil || ownerID == 0 || ownerID != callerID {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "not the resource owner"})
			}
			return next(c)
		}
	}
}

// RequireEntitlement returns a middleware that enforces an active
// subscription on top of authentication.  The missing-entitlement case is
// distinguishable from a plain ownership failure so clients can route the
// user to the upgrade screen.
func RequireEntitlement(checker EntitlementChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			callerID, ok := currentAccountID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "missing session"})
			}
			active, err := checker.HasActive(c.Request().Context(), callerID)
			if err != nil {
				c.Logger().Errorf("entitlement check failed: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "something went wrong"})
			}
			if !active {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "reason": "subscription_required"})
			}
			return next(c)
		}
	}
}
