package ports

import (
	"context"
	"net/url"

	"shopify-video-layer/internal/domain"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the Shopify OAuth and Admin API operations used by the app
type ShopifyClient interface {
	// Authentication
	AuthorizeURL(shop string, state string) string
	VerifyCallback(u *url.URL) bool
	ExchangeToken(ctx context.Context, shop string, code string) (*domain.AccessTokenGrant, error)

	// Webhook API
	RegisterWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error

	// Product API
	ListProducts(ctx context.Context, shop string, accessToken string) ([]shopify.Product, error)
}

// WebhookVerifier checks the X-Shopify-Hmac-SHA256 digest of a raw body.
type WebhookVerifier interface {
	Verify(body []byte, digest string) error
}

// WebhookHandler processes a verified webhook for the topics it accepts.
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}
