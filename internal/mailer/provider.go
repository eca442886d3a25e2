package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foxzi/journey/internal/config"
	"github.com/foxzi/journey/internal/store"
)

// NewSender builds the sender selected by cfg.Provider
func NewSender(ctx context.Context, cfg config.MailConfig, st store.Store, logger *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "resend":
		return NewResendSender(cfg.Resend.APIKey), nil
	case "ses":
		return NewSESSender(ctx, cfg.SES)
	case "smtp":
		return NewSMTPSender(cfg.SMTP, logger)
	case "sandbox":
		return NewSandboxSender(st, cfg.Sandbox.FailRecipients), nil
	default:
		return nil, fmt.Errorf("unknown mail provider: %s", cfg.Provider)
	}
}
