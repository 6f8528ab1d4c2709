package notify

import (
	mail "gopkg.in/mail.v2"

	"mesaflow/internal/config"
)

// Mailer sends CRM and confirmation emails over SMTP.
type Mailer struct {
	dialer *mail.Dialer
	from   string
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &Mailer{dialer: d, from: cfg.From}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
