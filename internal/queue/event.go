// Package queue defines message payloads exchanged over the message broker.
package queue

// Mail event kinds.
const (
	MailKindPasswordReset = "password_reset"
	MailKindEmailVerify   = "email_verify"
)

// MailEvent is published when the auth flow needs an email delivered: a
// password-reset link or an email-verification link. Delivery is
// fire-and-forget from the originating request's point of view; the SMTP
// bridge consumes these off the mail.outbound queue. The recipient address
// travels in the clear here because the broker is inside the trust boundary.
type MailEvent struct {
	Kind        string `json:"kind"`         // password_reset | email_verify
	To          string `json:"to"`           // recipient address
	Link        string `json:"link"`         // action link containing the token
	RequestedAt string `json:"requested_at"` // RFC 3339 timestamp
}
