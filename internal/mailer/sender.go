// Package mailer delivers appointment notifications over SMTP.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
)

// Message is one outbound email. Inline is an optional PNG embedded in the
// HTML body via cid:week.png.
type Message struct {
	To      string
	Subject string
	HTML    string
	Inline  []byte
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender talks plain AUTH SMTP (STARTTLS is negotiated by net/smtp
// when the server offers it).
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	body, err := buildMIME(s.from, msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{msg.To}, body); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func buildMIME(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/related; boundary=%q\r\n\r\n", w.Boundary())

	htmlPart, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/html; charset="utf-8"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(msg.HTML)); err != nil {
		return nil, err
	}

	if len(msg.Inline) > 0 {
		imgPart, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"image/png"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-ID":                {"<week.png>"},
			"Content-Disposition":       {`inline; filename="week.png"`},
		})
		if err != nil {
			return nil, err
		}
		enc := base64.StdEncoding.EncodeToString(msg.Inline)
		for len(enc) > 0 {
			n := min(len(enc), 76)
			if _, err := fmt.Fprintf(imgPart, "%s\r\n", enc[:n]); err != nil {
				return nil, err
			}
			enc = enc[n:]
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LogSender is a no-delivery Sender for development environments without
// an SMTP relay configured.
type LogSender struct {
	Log func(to, subject string)
}

func (l *LogSender) Send(_ context.Context, msg Message) error {
	if l.Log != nil {
		l.Log(msg.To, msg.Subject)
	}
	return nil
}
