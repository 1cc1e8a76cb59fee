package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTP delivers messages over a plain-auth SMTP relay.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.HTML)

	if err := smtp.SendMail(addr, auth, m.From, []string{m.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}
