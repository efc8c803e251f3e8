// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrEmailExists signals a duplicate registration that should
// surface as an HTTP 409, while ErrTokenSpent indicates a single-use
// token (backup code, reset link) that was already consumed and must
// never be accepted again.
package repository

import "errors"

// ErrEmailExists is returned when registration hits an address that is
// already taken. Handlers should translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row. Handlers decide
// whether this becomes a generic invalid-credentials response (to avoid
// account enumeration) or a 404.
var ErrNotFound = errors.New("not found")

// ErrTokenSpent is returned when an atomic consume finds the single-use
// row already used or expired. The conditional UPDATE guarantees that
// exactly one of two racing consumers receives success.
var ErrTokenSpent = errors.New("token already used or expired")
