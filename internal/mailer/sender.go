package mailer

import (
	"context"
	"fmt"
	"strings"

	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message through an email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

func NewSender(ctx context.Context, cfg config.EmailConfig, log logger.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case constants.EmailProviderSES:
		return NewSESSender(ctx, cfg.SES)
	case constants.EmailProviderSMTP:
		return NewSMTPSender(cfg.SMTP), nil
	case constants.EmailProviderLog, "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{logger: log.Named("mailer.log")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfowCtx(ctx, "Email (dry run)",
		"to", msg.To,
		"from", msg.From,
		"subject", msg.Subject,
		"body_bytes", len(msg.Body),
	)
	return nil
}

func (s *LogSender) Name() string {
	return constants.EmailProviderLog
}
