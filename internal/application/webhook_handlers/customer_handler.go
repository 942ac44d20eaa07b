package webhook_handlers

import (
	"context"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/rs/zerolog"
)

// CustomerHandler handles the customers/* compliance webhooks
type CustomerHandler struct {
	logger zerolog.Logger
	shops  ports.ShopStore
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(logger zerolog.Logger, shops ports.ShopStore) *CustomerHandler {
	return &CustomerHandler{
		logger: logger,
		shops:  shops,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomersDataRequest ||
		topic == domain.TopicCustomersRedact
}

// Handle processes a customer webhook event
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	switch event.Topic {
	case domain.TopicCustomersDataRequest:
		// No customer data is held, so there is nothing to export.
		h.logger.Info().Str("shop", event.Shop).Msg("Customer data request acknowledged")
		return nil
	case domain.TopicCustomersRedact:
		return redactShop(ctx, h.logger, h.shops, event)
	}
	return nil
}
