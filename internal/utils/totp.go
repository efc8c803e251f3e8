package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpSecretBytes is the entropy of a generated shared secret.  RFC 4226
// recommends at least 128 bits; 20 bytes matches the SHA-1 block the codes
// are derived from.
const totpSecretBytes = 20

// backupCodeAlphabet is the character set backup codes are drawn from.
const backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// BackupCodeLength is the length of a single backup code.
const BackupCodeLength = 8

var (
	totpCodeRe   = regexp.MustCompile(`^\d{6}$`)
	backupCodeRe = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

// ValidTOTPFormat reports whether the candidate is exactly six ASCII digits.
// Checked before any cryptographic work or database access.
func ValidTOTPFormat(code string) bool { return totpCodeRe.MatchString(code) }

// ValidBackupFormat reports whether the candidate is eight alphanumeric
// characters.  The check is case-insensitive; codes are normalized to
// uppercase before hashing.
func ValidBackupFormat(code string) bool {
	return backupCodeRe.MatchString(strings.ToUpper(code))
}

// GenerateTOTPSecret creates a new random shared secret for an account and
// returns the base32-encoded secret together with the otpauth:// provisioning
// URI.  The URI is rendered as a QR code by the caller; this package only
// produces the text form.
func GenerateTOTPSecret(issuer, accountLabel string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		SecretSize:  totpSecretBytes,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// BuildTOTPProvisioningURI rebuilds the otpauth:// URI for an existing
// secret, e.g. when the user re-opens the setup screen before activating.
func BuildTOTPProvisioningURI(secret, issuer, accountLabel string) (string, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		Secret:      raw,
	})
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}

// VerifyTOTPCode checks a candidate against the expected codes for the
// current 30-second step and skew adjacent steps (RFC 6238).  Malformed
// candidates are rejected before any derivation.
func VerifyTOTPCode(secret, candidate string, skew uint) bool {
	return VerifyTOTPCodeAt(secret, candidate, time.Now(), skew)
}

// VerifyTOTPCodeAt is VerifyTOTPCode evaluated at an explicit timestamp.
func VerifyTOTPCodeAt(secret, candidate string, at time.Time, skew uint) bool {
	if !ValidTOTPFormat(candidate) {
		return false
	}
	ok, err := totp.ValidateCustom(candidate, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// BackupCodePair carries a freshly generated backup code and its hash.  Only
// the hash may be persisted; the plaintext is shown to the user once.
type BackupCodePair struct {
	Code string
	Hash string
}

// GenerateBackupCodes produces a batch of single-use recovery codes, each
// eight uppercase alphanumeric characters from a cryptographically random
// source.
func GenerateBackupCodes(count int) ([]BackupCodePair, error) {
	out := make([]BackupCodePair, 0, count)
	alphabetLen := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < count; i++ {
		var sb strings.Builder
		for j := 0; j < BackupCodeLength; j++ {
			n, err := rand.Int(rand.Reader, alphabetLen)
			if err != nil {
				return nil, err
			}
			sb.WriteByte(backupCodeAlphabet[n.Int64()])
		}
		code := sb.String()
		out = append(out, BackupCodePair{Code: code, Hash: HashBackupCode(code)})
	}
	return out, nil
}

// HashBackupCode returns the SHA-256 hex digest of the uppercased code.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(code)))
	return hex.EncodeToString(sum[:])
}

// VerifyBackupCode hashes the normalized candidate and compares it against
// each stored hash in constant time.  It is a pure predicate: marking the
// matched code as used is the caller's responsibility.
func VerifyBackupCode(candidate string, storedHashes []string) bool {
	if !ValidBackupFormat(candidate) {
		return false
	}
	want := []byte(HashBackupCode(candidate))
	matched := false
	for _, h := range storedHashes {
		if subtle.ConstantTimeCompare(want, []byte(h)) == 1 {
			matched = true
		}
	}
	return matched
}
