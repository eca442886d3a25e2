package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/foxzi/journey/internal/config"
)

// SMTPSender delivers through an SMTP relay, one connection per message
type SMTPSender struct {
	addr     string
	host     string
	username string
	password string
	tlsMode  string
	hostname string
	timeout  time.Duration
	signer   *dkimSigner
	logger   *slog.Logger
}

// NewSMTPSender creates an SMTP relay sender
func NewSMTPSender(cfg config.SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	s := &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		tlsMode:  cfg.TLS,
		hostname: cfg.Hostname,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
	if s.timeout == 0 {
		s.timeout = 30 * time.Second
	}
	if s.hostname == "" {
		s.hostname = "localhost"
	}

	if cfg.DKIM.Enabled {
		signer, err := newDKIMSigner(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
		if err != nil {
			return nil, err
		}
		s.signer = signer
	}

	return s, nil
}

// Name implements Sender
func (s *SMTPSender) Name() string { return "smtp" }

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := buildMessage(msg, time.Now())
	if s.signer != nil {
		signed, err := s.signer.sign(data)
		if err != nil {
			s.logger.Warn("DKIM signing failed, sending unsigned",
				"domain", s.signer.domain,
				"error", err,
			)
		} else {
			data = signed
		}
	}

	client, err := s.dial()
	if err != nil {
		return fmt.Errorf("connection failed to %s: %w", s.addr, err)
	}
	defer client.Close()

	client.CommandTimeout = s.timeout
	client.SubmissionTimeout = s.timeout

	// STARTTLS already greeted the server during dial
	if s.tlsMode != "starttls" {
		if err := client.Hello(s.hostname); err != nil {
			return fmt.Errorf("HELO failed: %w", err)
		}
	}

	if s.username != "" {
		if err := client.Auth(sasl.NewPlainClient("", s.username, s.password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := client.SendMail(bareAddress(msg.From), []string{msg.To}, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	return client.Quit()
}

func (s *SMTPSender) dial() (*smtp.Client, error) {
	tlsConfig := &tls.Config{
		ServerName: s.host,
		MinVersion: tls.VersionTLS12,
	}

	switch s.tlsMode {
	case "implicit":
		return smtp.DialTLS(s.addr, tlsConfig)
	case "none":
		return smtp.Dial(s.addr)
	default:
		return smtp.DialStartTLS(s.addr, tlsConfig)
	}
}
