package broker

import (
	"context"

	"leadflow/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// Consumer delivers envelopes from one topic per Consume call. Consume
// blocks until its context is cancelled.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc processes one envelope. A returned error is retried and then
// dead-lettered.
type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error
