package notify

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Mailer delivers messages over SMTP. With an empty User no AUTH is sent
// (e.g. MailHog in dev).
type Mailer struct {
	Host     string
	Port     int
	User     string
	Pass     string
	FromName string
	FromAddr string

	Log zerolog.Logger
}

func (m *Mailer) Send(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("empty recipient")
	}
	if m.Host == "" || m.FromAddr == "" {
		return fmt.Errorf("SMTP host or sender not configured")
	}

	port := m.Port
	if port == 0 {
		port = 25
	}
	addr := fmt.Sprintf("%s:%d", m.Host, port)

	from := msg.From
	if from == "" {
		from = m.FromAddr
		if m.FromName != "" {
			from = fmt.Sprintf("%s <%s>", m.FromName, m.FromAddr)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("From: " + from + "\r\n")
	buf.WriteString("To: " + msg.To + "\r\n")
	buf.WriteString("Subject: " + msg.Subject + "\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTML)

	m.Log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Str("smtp", addr).Msg("sending email")

	if err := smtp.SendMail(addr, m.auth(), m.FromAddr, []string{msg.To}, buf.Bytes()); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *Mailer) auth() smtp.Auth {
	if m.User != "" {
		return smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	return nil
}
