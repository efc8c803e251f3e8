package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natalplan/auth-service/internal/audit"
	"github.com/natalplan/auth-service/internal/utils"
)

func TestResetRequestDoesNotRevealAccounts(t *testing.T) {
	h, st := newTestAuth(t)
	seedAccount(t, st, h.Cfg, "known@example.com", "correct-horse", true)

	known := doJSON(t, h.RequestPasswordReset, http.MethodPost, "/v1/auth/password-reset/request",
		`{"email":"known@example.com"}`)
	unknown := doJSON(t, h.RequestPasswordReset, http.MethodPost, "/v1/auth/password-reset/request",
		`{"email":"nobody@example.com"}`)

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String(),
		"identical body for registered and unregistered addresses")

	// Only the registered address actually gets a mail.
	mails := st.sentMails()
	require.Len(t, mails, 1)
	assert.Equal(t, "known@example.com", mails[0].To)
	assert.Contains(t, mails[0].Link, "/reset-password?token=")
}

func TestResetConfirmReplacesPassword(t *testing.T) {
	h, st := newTestAuth(t)
	id := seedAccount(t, st, h.Cfg, "user@example.com", "old-password", true)

	doJSON(t, h.RequestPasswordReset, http.MethodPost, "/v1/auth/password-reset/request",
		`{"email":"user@example.com"}`)
	mails := st.sentMails()
	require.Len(t, mails, 1)
	raw := mails[0].Link[strings.Index(mails[0].Link, "token=")+len("token="):]

	rec := doJSON(t, h.ConfirmPasswordReset, http.MethodPost, "/v1/auth/password-reset/confirm",
		fmt.Sprintf(`{"token":%q,"password":"new-password"}`, raw))
	require.Equal(t, http.StatusOK, rec.Code)

	acc, err := st.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, utils.VerifyPassword(acc.PasswordHash, "old-password"))
	assert.True(t, utils.VerifyPassword(acc.PasswordHash, "new-password"))
}

func TestResetTokenSingleUse(t *testing.T) {
	h, st := newTestAuth(t)
	seedAccount(t, st, h.Cfg, "user@example.com", "old-password", true)

	doJSON(t, h.RequestPasswordReset, http.MethodPost, "/v1/auth/password-reset/request",
		`{"email":"user@example.com"}`)
	raw := st.sentMails()[0].Link
	raw = raw[strings.Index(raw, "token=")+len("token="):]

	payload := fmt.Sprintf(`{"token":%q,"password":"new-password"}`, raw)
	rec := doJSON(t, h.ConfirmPasswordReset, http.MethodPost, "/v1/auth/password-reset/confirm", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h.ConfirmPasswordReset, http.MethodPost, "/v1/auth/password-reset/confirm", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, h.Events.ByCategory(audit.CategoryTokenReplay))
}

func TestResetNewRequestInvalidatesPriorToken(t *testing.T) {
	h, st := newTestAuth(t)
	seedAccount(t, st, h.Cfg, "user@example.com", "old-password", true)

	doJSON(t, h.RequestPasswordReset, http.MethodPost, "/v1/auth/password-reset/request",
		`{"email":"user@example.com"}`)
	doJSON(t, h.RequestPasswordReset, http.MethodPost, "/v1/auth/password-reset/request",
		`{"email":"user@example.com"}`)

	mails := st.sentMails()
	require.Len(t, mails, 2)
	first := mails[0].Link[strings.Index(mails[0].Link, "token=")+len("token="):]
	second := mails[1].Link[strings.Index(mails[1].Link, "token=")+len("token="):]

	rec := doJSON(t, h.ConfirmPasswordReset, http.MethodPost, "/v1/auth/password-reset/confirm",
		fmt.Sprintf(`{"token":%q,"password":"new-password"}`, first))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "the older link is dead")

	rec = doJSON(t, h.ConfirmPasswordReset, http.MethodPost, "/v1/auth/password-reset/confirm",
		fmt.Sprintf(`{"token":%q,"password":"new-password"}`, second))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetConfirmRejectsShortPassword(t *testing.T) {
	h, _ := newTestAuth(t)
	rec := doJSON(t, h.ConfirmPasswordReset, http.MethodPost, "/v1/auth/password-reset/confirm",
		`{"token":"whatever","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeReturnsContextIdentity(t *testing.T) {
	h, _ := newTestAuth(t)
	rec := doAuthed(t, h.Me, 12, "user@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := body(t, rec.Body.String())
	assert.Equal(t, float64(12), resp["account_id"])
	assert.Equal(t, "user@example.com", resp["email"])
}
