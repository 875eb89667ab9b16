package leads

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/metrics"
	"leadflow/pkg/models"
)

// Claimer drops envelopes that were already handled.
type Claimer interface {
	Claim(ctx context.Context, msg models.MessageEnvelope) (bool, error)
	Release(ctx context.Context, msg models.MessageEnvelope)
}

// IngressHandler consumes lead_event envelopes from the broker. Delivery is
// at least once; duplicates inside the claim TTL are skipped.
type IngressHandler struct {
	service Service
	claims  Claimer
	logger  logger.Logger
}

func NewIngressHandler(service Service, claims Claimer, log logger.Logger) *IngressHandler {
	return &IngressHandler{
		service: service,
		claims:  claims,
		logger:  log,
	}
}

// HandleLeadEvent returns an error only for failures worth retrying.
// Malformed envelopes and unknown leads are logged and dropped.
func (h *IngressHandler) HandleLeadEvent(ctx context.Context, envelope models.MessageEnvelope) error {
	if err := models.ValidateMessageEnvelope(&envelope); err != nil {
		metrics.IngestMessagesTotal.WithLabelValues("invalid").Inc()
		h.logger.WarnwCtx(ctx, "Ignoring invalid envelope", "error", err, "message_id", envelope.ID)
		return nil
	}
	if envelope.Type != models.EnvelopeTypeLeadEvent {
		metrics.IngestMessagesTotal.WithLabelValues("ignored").Inc()
		return nil
	}

	var payload models.LeadEventPayload
	if err := mapstructure.Decode(envelope.Payload, &payload); err != nil {
		metrics.IngestMessagesTotal.WithLabelValues("invalid").Inc()
		h.logger.WarnwCtx(ctx, "Ignoring malformed lead event", "error", err, "message_id", envelope.ID)
		return nil
	}

	if h.claims != nil {
		fresh, err := h.claims.Claim(ctx, envelope)
		if err != nil {
			return fmt.Errorf("claim lead event %s: %w", envelope.ID, err)
		}
		if !fresh {
			return nil
		}
	}

	summary, err := h.service.Ingest(ctx, payload)
	if err != nil {
		if pkgerrors.IsValidation(err) || pkgerrors.IsNotFound(err) {
			metrics.IngestMessagesTotal.WithLabelValues("invalid").Inc()
			h.logger.WarnwCtx(ctx, "Dropping lead event",
				"error", err,
				"message_id", envelope.ID,
				"kind", payload.Kind,
				"lead_id", payload.LeadID,
			)
			return nil
		}
		if h.claims != nil {
			h.claims.Release(ctx, envelope)
		}
		metrics.IngestMessagesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("ingest lead event %s: %w", envelope.ID, err)
	}

	metrics.IngestMessagesTotal.WithLabelValues("processed").Inc()
	h.logger.DebugwCtx(ctx, "Lead event dispatched",
		"message_id", envelope.ID,
		"kind", payload.Kind,
		"rules_matched", summary.RulesMatched,
	)
	return nil
}
