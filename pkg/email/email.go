// Package email delivers account mail. Services depend on the Sender
// interface; the Resend implementation is wired in main.go only when
// RESEND_API_KEY is set.
package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
)

// Sender sends account notifications.
type Sender interface {
	// SendGeneratedPassword mails the one-time password of a new account.
	SendGeneratedPassword(ctx context.Context, toEmail, username, password string) error
}

type resendSender struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

// NewResendSender builds a Sender on the Resend API. fromEmail must belong
// to a domain verified in Resend.
func NewResendSender(apiKey, fromEmail, appURL string) Sender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

func (s *resendSender) SendGeneratedPassword(ctx context.Context, toEmail, username, password string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Carga Slack <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: "Seu acesso ao Carga Slack",
		Html:    renderGeneratedPassword(s.appURL, username, password),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send generated password email: %w", err)
	}
	return nil
}

func renderGeneratedPassword(appURL, username, password string) string {
	loginURL := html.EscapeString(appURL + "/login")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:24px;background-color:#f8fafc;font-family:Arial,Helvetica,sans-serif;">
  <table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:32px;">
    <tr><td>
      <h2 style="color:#0f172a;margin:0 0 16px 0;">Carga Slack</h2>
      <p style="color:#334155;font-size:15px;">Uma conta foi criada para você.</p>
      <p style="color:#334155;font-size:15px;">Usuário: <strong>%s</strong><br>Senha temporária: <code>%s</code></p>
      <p style="color:#64748b;font-size:13px;">Você deverá trocar a senha no primeiro acesso.</p>
      <p><a href="%s" style="color:#2563eb;">%s</a></p>
    </td></tr>
  </table>
</body>
</html>`, html.EscapeString(username), html.EscapeString(password), loginURL, loginURL)
}
