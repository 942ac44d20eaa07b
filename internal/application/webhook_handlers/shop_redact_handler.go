package webhook_handlers

import (
	"context"
	"fmt"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ShopRedactHandler purges a shop's data 48 hours after uninstall.
type ShopRedactHandler struct {
	logger zerolog.Logger
	shops  ports.ShopStore
}

// NewShopRedactHandler creates a new shop redact webhook handler
func NewShopRedactHandler(logger zerolog.Logger, shops ports.ShopStore) *ShopRedactHandler {
	return &ShopRedactHandler{logger: logger, shops: shops}
}

// CanHandle returns true if this handler can process the given topic
func (h *ShopRedactHandler) CanHandle(topic string) bool {
	return topic == domain.TopicShopRedact
}

// Handle deletes the connection of the shop named in the signed body.
func (h *ShopRedactHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	return redactShop(ctx, h.logger, h.shops, event)
}

// redactShop deletes the connection named by shop_domain. Unlike uninstall,
// the delete must succeed before the delivery is acknowledged.
func redactShop(ctx context.Context, logger zerolog.Logger, shops ports.ShopStore, event *domain.WebhookEvent) error {
	shop, ok := resolveShop(logger, event, func(p *domain.WebhookPayload) string { return p.ShopDomain })
	if !ok {
		return nil
	}

	if err := shops.Delete(ctx, shop); err != nil {
		return fmt.Errorf("failed to redact shop %s: %w", shop, err)
	}

	logger.Info().Str("topic", event.Topic).Str("shop", shop).Msg("Shop data redacted")
	return nil
}

// resolveShop picks the shop from the payload field, falling back to
// shop_domain. Only the signed body is trusted: the X-Shopify-Shop-Domain
// header is not covered by the HMAC and is used for logging only. It returns
// false when the body is not JSON or names no valid shop; such deliveries
// are acknowledged without action.
func resolveShop(logger zerolog.Logger, event *domain.WebhookEvent, field func(*domain.WebhookPayload) string) (string, bool) {
	payload, err := domain.ParseWebhookPayload(event.Payload)
	if err != nil {
		logger.Warn().Err(err).Str("topic", event.Topic).Msg("Malformed webhook payload")
		return "", false
	}

	for _, candidate := range []string{field(payload), payload.ShopDomain} {
		if candidate == "" {
			continue
		}
		shop, err := domain.NormalizeShop(candidate)
		if err != nil {
			logger.Warn().Str("topic", event.Topic).Str("candidate", candidate).Str("header_shop", event.Shop).Msg("Ignoring invalid shop in webhook")
			continue
		}
		return shop, true
	}

	logger.Warn().Str("topic", event.Topic).Str("header_shop", event.Shop).Msg("Webhook body names no shop")
	return "", false
}
