package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// codeAt derives the expected six-digit code for a secret at a given time,
// using the same parameters the verifier assumes.
func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

// flipDigit changes the last digit of a code, producing a well-formed but
// different candidate.
func flipDigit(code string) string {
	b := []byte(code)
	b[len(b)-1] = '0' + (b[len(b)-1]-'0'+1)%10
	return string(b)
}

func TestValidTOTPFormat(t *testing.T) {
	valid := []string{"000000", "123456", "999999"}
	invalid := []string{"", "12345", "1234567", "12345a", "12 456", "１２３４５６"}
	for _, c := range valid {
		assert.True(t, ValidTOTPFormat(c), "code %q", c)
	}
	for _, c := range invalid {
		assert.False(t, ValidTOTPFormat(c), "code %q", c)
	}
}

func TestValidBackupFormat(t *testing.T) {
	assert.True(t, ValidBackupFormat("ABCD1234"))
	assert.True(t, ValidBackupFormat("abcd1234"), "lowercase input is normalized")
	assert.False(t, ValidBackupFormat("ABCD123"))
	assert.False(t, ValidBackupFormat("ABCD12345"))
	assert.False(t, ValidBackupFormat("ABCD-123"))
	assert.False(t, ValidBackupFormat(""))
}

func TestGenerateTOTPSecret(t *testing.T) {
	secret, uri, err := GenerateTOTPSecret("NatalPlan", "user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"), "uri %q", uri)
	assert.Contains(t, uri, "NatalPlan")
	assert.Contains(t, uri, "secret="+secret)

	// A second enrollment never repeats a secret.
	secret2, _, err := GenerateTOTPSecret("NatalPlan", "user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, secret, secret2)
}

func TestBuildTOTPProvisioningURI(t *testing.T) {
	secret, _, err := GenerateTOTPSecret("NatalPlan", "user@example.com")
	require.NoError(t, err)

	uri, err := BuildTOTPProvisioningURI(secret, "NatalPlan", "user@example.com")
	require.NoError(t, err)
	assert.Contains(t, uri, "secret="+secret)

	_, err = BuildTOTPProvisioningURI("not!base32!!", "NatalPlan", "user@example.com")
	assert.Error(t, err)
}

func TestVerifyTOTPCodeAt(t *testing.T) {
	secret, _, err := GenerateTOTPSecret("NatalPlan", "user@example.com")
	require.NoError(t, err)
	// A fixed reference instant keeps the step arithmetic deterministic.
	now := time.Date(2025, 12, 24, 18, 0, 15, 0, time.UTC)
	code := codeAt(t, secret, now)

	assert.True(t, VerifyTOTPCodeAt(secret, code, now, 1), "current step")
	assert.True(t, VerifyTOTPCodeAt(secret, code, now.Add(30*time.Second), 1), "one step late within skew")
	assert.True(t, VerifyTOTPCodeAt(secret, code, now.Add(-30*time.Second), 1), "one step early within skew")
	assert.False(t, VerifyTOTPCodeAt(secret, code, now.Add(3*30*time.Second), 1), "outside skew")
	assert.False(t, VerifyTOTPCodeAt(secret, code, now.Add(2*30*time.Second), 0), "zero skew only matches the exact step")

	// Flip one digit of a valid code: guaranteed well-formed and wrong.
	wrong := flipDigit(code)
	assert.False(t, VerifyTOTPCodeAt(secret, wrong, now, 0))
	assert.False(t, VerifyTOTPCodeAt(secret, "12345", now, 1), "malformed rejected before derivation")
	assert.False(t, VerifyTOTPCodeAt(secret, "", now, 1))
}

func TestGenerateBackupCodes(t *testing.T) {
	pairs, err := GenerateBackupCodes(10)
	require.NoError(t, err)
	require.Len(t, pairs, 10)

	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		assert.Len(t, p.Code, BackupCodeLength)
		for _, r := range p.Code {
			assert.Contains(t, backupCodeAlphabet, string(r))
		}
		assert.Equal(t, HashBackupCode(p.Code), p.Hash)
		assert.False(t, seen[p.Code], "duplicate code %q in one batch", p.Code)
		seen[p.Code] = true
	}
}

func TestHashBackupCodeNormalizesCase(t *testing.T) {
	assert.Equal(t, HashBackupCode("abcd1234"), HashBackupCode("ABCD1234"))
	assert.NotEqual(t, HashBackupCode("ABCD1234"), HashBackupCode("ABCD1235"))
}

func TestVerifyBackupCode(t *testing.T) {
	pairs, err := GenerateBackupCodes(3)
	require.NoError(t, err)
	hashes := []string{pairs[0].Hash, pairs[1].Hash, pairs[2].Hash}

	assert.True(t, VerifyBackupCode(pairs[1].Code, hashes))
	assert.True(t, VerifyBackupCode(strings.ToLower(pairs[1].Code), hashes), "case-insensitive")
	assert.False(t, VerifyBackupCode("ZZZZ9999", hashes))
	assert.False(t, VerifyBackupCode(pairs[0].Code, nil), "no stored hashes")
	assert.False(t, VerifyBackupCode("bad", hashes), "malformed rejected")
}
