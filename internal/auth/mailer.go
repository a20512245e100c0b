package auth

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers password reset instructions.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, name, token string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Tudinho: redefinição de senha")

	body := fmt.Sprintf(`
		<h3>Olá, %s!</h3>
		<p>Recebemos um pedido para redefinir a senha da sua conta.</p>
		<p>Use este código para criar uma nova senha: <strong>%s</strong></p>
		<p>O código vale por 1 hora. Se você não fez o pedido, ignore este email.</p>
	`, html.EscapeString(name), token)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

// LogMailer writes reset codes to the log. Used when SMTP is not configured.
type LogMailer struct {
	log *zap.SugaredLogger
}

func NewLogMailer(log *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: log.With("component", "mailer")}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, _, token string) error {
	m.log.Warnw("smtp not configured, password reset code logged instead", "to", to, "code", token)
	return nil
}
