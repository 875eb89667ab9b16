package mailer

import (
	"context"
	"strings"
	"time"

	"leadflow/internal/logger"
	"leadflow/pkg/circuitbreaker"
	"leadflow/pkg/metrics"
)

// Gateway is the email entry point of the automation engine. It reports
// delivery as a bool and never surfaces provider errors to callers.
type Gateway struct {
	sender  Sender
	from    string
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewGateway(sender Sender, from string, breaker *circuitbreaker.Wrapper, log logger.Logger) *Gateway {
	return &Gateway{
		sender:  sender,
		from:    from,
		breaker: breaker,
		logger:  log.Named("mailer"),
	}
}

func (g *Gateway) Send(ctx context.Context, to, subject, body string) bool {
	if strings.TrimSpace(to) == "" {
		g.logger.WarnwCtx(ctx, "Email skipped, recipient address is empty", "subject", subject)
		return false
	}

	msg := Message{From: g.from, To: to, Subject: subject, Body: body}
	start := time.Now()

	var err error
	if g.breaker != nil {
		_, err = g.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return nil, g.sender.Send(ctx, msg)
		})
		g.breaker.RecordRequest(err == nil)
	} else {
		err = g.sender.Send(ctx, msg)
	}

	metrics.ObserveEmailSend(g.sender.Name(), err == nil, time.Since(start))
	if err != nil {
		g.logger.ErrorwCtx(ctx, "Failed to send email",
			"provider", g.sender.Name(),
			"to", to,
			"error", err,
		)
		return false
	}

	g.logger.DebugwCtx(ctx, "Email sent",
		"provider", g.sender.Name(),
		"to", to,
	)
	return true
}
