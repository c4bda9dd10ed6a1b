package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

type Sender interface {
	Send(to, subject, html string) error
}

// StdoutSender logs mail instead of delivering it.
type StdoutSender struct {
	Log zerolog.Logger
}

func (s StdoutSender) Send(to, subject, html string) error {
	s.Log.Info().Str("to", to).Str("subject", subject).Msg(html)
	return nil
}

// SMTPSender delivers through a plain SMTP relay (MailHog on localhost:1025
// in development).
type SMTPSender struct {
	Addr     string
	From     string
	Username string
	Password string
	Timeout  time.Duration
}

func NewSMTPSender(addr, from string) *SMTPSender {
	if addr == "" {
		addr = "localhost:1025"
	}
	if from == "" {
		from = "no-reply@moviefinder.local"
	}
	return &SMTPSender{Addr: addr, From: from, Timeout: 15 * time.Second}
}

func (s *SMTPSender) Send(to, subject, html string) error {
	if to == "" {
		return errors.New("smtp: empty recipient")
	}
	host, portStr, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return fmt.Errorf("smtp addr %q: %w", s.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("smtp port %q: %w", portStr, err)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(timeout),
	}
	if s.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.Username),
			gomail.WithPassword(s.Password),
		)
	}
	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
