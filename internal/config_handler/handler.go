package config_handler

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"leadflow/internal/logger"
	"leadflow/pkg/models"
)

type ConfigReloader interface {
	ReloadRules(ctx context.Context) error
}

// Handler reacts to config update envelopes of one event type by reloading
// the in-process snapshot they describe.
type Handler struct {
	expectedEventType string
	reloader          ConfigReloader
	logger            logger.Logger
}

func NewHandler(expectedEventType string, reloader ConfigReloader, log logger.Logger) *Handler {
	return &Handler{
		expectedEventType: expectedEventType,
		reloader:          reloader,
		logger:            log,
	}
}

func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, envelope models.MessageEnvelope) error {
	if envelope.Type != "" && envelope.Type != models.EnvelopeTypeConfigUpdate {
		return nil
	}

	var event models.ConfigUpdateEvent
	if err := mapstructure.Decode(envelope.Payload, &event); err != nil {
		// A malformed event would fail every retry; drop it.
		h.logger.WarnwCtx(ctx, "Ignoring malformed config event", "error", err, "id", envelope.ID)
		return nil
	}
	if event.EventType == "" {
		h.logger.WarnwCtx(ctx, "Config event missing event_type", "id", envelope.ID)
		return nil
	}
	if event.EventType != h.expectedEventType {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"rule_id", event.RuleID,
		"changed_by", event.ChangedBy,
	)

	if h.reloader == nil {
		return nil
	}
	if err := h.reloader.ReloadRules(ctx); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload rules after config update", "error", err)
		return fmt.Errorf("reload after %s of rule %s: %w", event.Action, event.RuleID, err)
	}
	h.logger.InfowCtx(ctx, "Rules reloaded successfully after config update", "action", event.Action)
	return nil
}
