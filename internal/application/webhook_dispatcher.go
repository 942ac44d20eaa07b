package application

import (
	"context"
	"fmt"
	"sync"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookDispatcher routes verified webhook events to the first registered
// handler that accepts the topic.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers []ports.WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler. Handlers are consulted in registration order.
func (d *WebhookDispatcher) RegisterHandler(h ports.WebhookHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Dispatch hands the event to its handler.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			return fmt.Errorf("failed to handle %s webhook: %w", event.Topic, err)
		}
		return nil
	}

	d.logger.Warn().Str("topic", event.Topic).Str("shop", event.Shop).Msg("No handler registered for webhook topic")
	return fmt.Errorf("%w: %s", domain.ErrUnknownWebhookTopic, event.Topic)
}
