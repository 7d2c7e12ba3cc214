// Package mail delivers the account-verification email.
//
// The rest of the system only sees the Sender interface — the auth service
// neither knows nor cares whether mail actually leaves the machine. Tests
// pass a recording fake; development runs use the log-only sender so signup
// works without an SMTP account.
package mail

import (
	"fmt"
	"log/slog"
	"net/smtp"
)

// Sender dispatches a verification email carrying the given token.
type Sender interface {
	SendVerification(to, token string) error
}

// SMTPSender sends real email over an external SMTP host using PLAIN auth.
// Most providers (including Gmail on port 587) upgrade the connection with
// STARTTLS, which net/smtp negotiates automatically.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	baseURL  string
	logger   *slog.Logger
}

// NewSMTPSender creates an SMTPSender. baseURL is the externally visible
// server prefix embedded in the verification link.
func NewSMTPSender(host string, port int, username, password, baseURL string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// SendVerification emails a "verify your email" link to the new account.
func (s *SMTPSender) SendVerification(to, token string) error {
	verifyURL := fmt.Sprintf("%s/auth/verify-email/%s", s.baseURL, token)

	body := fmt.Sprintf(`<html>
<body>
<h1>Welcome to Secure File Share</h1>
<p>Please verify your email by clicking on the link below:</p>
<p><a href="%s">Verify Email</a></p>
<p>If you didn't request this, please ignore this email.</p>
</body>
</html>`, verifyURL)

	// Headers and body in one message. CRLF line endings per RFC 5322.
	msg := []byte("From: " + s.username + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: Verify your email\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	if err := smtp.SendMail(addr, auth, s.username, []string{to}, msg); err != nil {
		return fmt.Errorf("mail: sending verification to %s: %w", to, err)
	}

	s.logger.Info("verification email sent", slog.String("to", to))
	return nil
}

// LogSender is the no-SMTP fallback: it logs the verification link instead
// of sending it. Useful in development, where the signup response already
// carries the verification URL anyway.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendVerification logs the token instead of emailing it. Never fails.
func (s *LogSender) SendVerification(to, token string) error {
	s.logger.Info("verification email suppressed (SMTP not configured)",
		slog.String("to", to),
		slog.String("token", token),
	)
	return nil
}
