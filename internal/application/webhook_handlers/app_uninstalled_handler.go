package webhook_handlers

import (
	"context"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger zerolog.Logger
	shops  ports.ShopStore
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(logger zerolog.Logger, shops ports.ShopStore) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger: logger,
		shops:  shops,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle drops the stored connection. A failed delete is logged and the
// delivery is still acknowledged; Shopify follows up with shop/redact.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shop, ok := resolveShop(h.logger, event, func(p *domain.WebhookPayload) string { return p.MyshopifyDomain })
	if !ok {
		return nil
	}

	if err := h.shops.Delete(ctx, shop); err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to delete shop after uninstall")
		return nil
	}

	h.logger.Info().Str("shop", shop).Msg("App uninstalled - shop connection removed")
	return nil
}
