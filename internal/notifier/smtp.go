package notifier

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig locates the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers messages over plain SMTP with AUTH. No provider SDK;
// any relay that speaks the protocol works.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a Deliverer for the given relay.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Deliver sends one message. HTML body, optional base64 PDF attachment via
// multipart/mixed.
func (s *SMTPSender) Deliver(_ context.Context, m Message) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	body := buildMIME(s.cfg.From, m)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{m.To}, body); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

func buildMIME(from string, m Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(m.Attachment) == 0 {
		b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
		b.WriteString(m.HTML)
		return []byte(b.String())
	}

	const boundary = "vaultledger-boundary"
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(m.HTML)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: application/pdf\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", m.AttachmentName)
	b.WriteString(base64.StdEncoding.EncodeToString(m.Attachment))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
