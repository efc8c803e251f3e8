package utils // package utils provides helper functions for token creation and hashing

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Token type discriminators embedded in the "typ" claim.  Verification
// callers state which kind they expect so an access token can never be
// replayed as a refresh token or vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Identity is the subject bound into every session token: the account id and
// the (decrypted) email address.
type Identity struct {
	AccountID uint64
	Email     string
}

// SignedToken pairs a serialized JWT with its expiration time.  The Exp field
// drives the Max-Age of the cookie carrying the token.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenClaims is the decoded payload of a verified session token.  Remember
// is only meaningful on refresh tokens; it is carried so a later refresh can
// reproduce the same expiry policy.
type TokenClaims struct {
	Identity
	Remember bool
	Type     string
}

// NewAccessToken builds and signs a short-lived HS256 JWT for an account.
// The JWT binds the account id (sub) and email alongside the standard exp
// and iat claims.  Access tokens authorize individual requests and travel
// in an HTTP-only cookie.
func NewAccessToken(secret string, id Identity, ttlMin int) (SignedToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   id.AccountID,
		"email": id.Email,
		"typ":   TokenTypeAccess,
		"exp":   exp.Unix(),
		"iat":   time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs a long-lived HS256 JWT.  Besides the
// identity it binds the remember flag, so renewing a "remembered" session
// keeps the extended lifetime.  ttlDays is chosen by the caller from the
// configured 7/30-day policy.  Refresh tokens are stateless: validity
// derives purely from signature and expiry, nothing is persisted.
func NewRefreshToken(secret string, id Identity, remember bool, ttlDays int) (SignedToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":      id.AccountID,
		"email":    id.Email,
		"remember": remember,
		"typ":      TokenTypeRefresh,
		"exp":      exp.Unix(),
		"iat":      time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken validates the signature and expiry of a session token and
// checks that its "typ" claim matches wantType.  It returns (claims, true)
// on success and (zero, false) on any failure — expired, malformed, wrong
// signature, wrong type.  It never returns an error so callers treat every
// failure uniformly as "no session".
func VerifyToken(secret, raw, wantType string) (TokenClaims, bool) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject any signing method other than HMAC before touching the key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return TokenClaims{}, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, false
	}
	typ, _ := claims["typ"].(string)
	if typ != wantType {
		return TokenClaims{}, false
	}
	out := TokenClaims{Type: typ}
	switch sub := claims["sub"].(type) {
	case float64:
		out.AccountID = uint64(sub)
	default:
		return TokenClaims{}, false
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if rem, ok := claims["remember"].(bool); ok {
		out.Remember = rem
	}
	return out, true
}
