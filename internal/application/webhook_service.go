package application

import (
	"context"
	"fmt"
	"time"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/rs/zerolog"
)

const DefaultWebhookTimeout = 5 * time.Second

// Webhook results used for logging and metrics.
const (
	WebhookRejected  = "rejected"
	WebhookProcessed = "processed"
	WebhookFailed    = "failed"
)

// WebhookService verifies a delivery and dispatches it under a deadline.
type WebhookService struct {
	verifier   ports.WebhookVerifier
	dispatcher *WebhookDispatcher
	metrics    ports.MetricsRecorder
	logger     zerolog.Logger
	timeout    time.Duration
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(verifier ports.WebhookVerifier, dispatcher *WebhookDispatcher, metrics ports.MetricsRecorder, logger zerolog.Logger, timeout time.Duration) *WebhookService {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &WebhookService{
		verifier:   verifier,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		timeout:    timeout,
	}
}

// Receive checks digest against the raw body. A bad signature is logged and
// reported as WebhookRejected with a nil error so the caller still answers
// 200. A non-nil error means a handler could not complete its work.
func (s *WebhookService) Receive(ctx context.Context, topic, shopHeader string, body []byte, digest string) (string, error) {
	if err := s.verifier.Verify(body, digest); err != nil {
		s.logger.Warn().
			Err(err).
			Str("topic", topic).
			Str("shop", shopHeader).
			Int("bytes", len(body)).
			Msg("Webhook signature verification failed")
		s.metrics.Webhook(topic, WebhookRejected)
		return WebhookRejected, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	event := &domain.WebhookEvent{
		Topic:    topic,
		Shop:     shopHeader,
		Payload:  body,
		Verified: true,
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Str("shop", shopHeader).Msg("Webhook processing failed")
		s.metrics.Webhook(topic, WebhookFailed)
		return WebhookFailed, fmt.Errorf("failed to process webhook: %w", err)
	}

	s.logger.Info().Str("topic", topic).Str("shop", shopHeader).Msg("Webhook processed")
	s.metrics.Webhook(topic, WebhookProcessed)
	return WebhookProcessed, nil
}
