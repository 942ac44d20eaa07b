package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const (
	serviceName = "shopify"

	maxResponseBody = 1 << 20
)

// Config holds the app credentials registered in the Shopify partner dashboard.
type Config struct {
	APIKey      string
	APISecret   string
	RedirectURI string
	Scopes      []string
	APIVersion  string
}

type client struct {
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) ports.ShopifyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		app: goshopify.App{
			ApiKey:      cfg.APIKey,
			ApiSecret:   cfg.APISecret,
			RedirectUrl: cfg.RedirectURI,
			Scope:       strings.Join(cfg.Scopes, ","),
		},
		apiVersion: cfg.APIVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken,
		goshopify.WithVersion(c.apiVersion),
		goshopify.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Authentication methods

func (c *client) AuthorizeURL(shop string, state string) string {
	q := url.Values{}
	q.Set("client_id", c.app.ApiKey)
	q.Set("scope", c.app.Scope)
	q.Set("redirect_uri", c.app.RedirectUrl)
	q.Set("state", state)

	c.logger.Debug().
		Str("shop", shop).
		Str("scopes", c.app.Scope).
		Msg("Generated OAuth authorization URL")

	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode())
}

// VerifyCallback checks the hmac query parameter Shopify appends to the
// OAuth redirect.
func (c *client) VerifyCallback(u *url.URL) bool {
	ok, err := c.app.VerifyAuthorizationURL(u)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to verify OAuth callback URL")
		return false
	}
	return ok
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (*domain.AccessTokenGrant, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	payload, err := json.Marshal(map[string]string{
		"client_id":     c.app.ApiKey,
		"client_secret": c.app.ApiSecret,
		"code":          code,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, Body: err.Error(), Kind: domain.ErrTokenExchangeFailed}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: err.Error(), Kind: domain.ErrTokenExchangeFailed}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw), Kind: domain.ErrTokenExchangeFailed}
	}

	var grant domain.AccessTokenGrant
	if err := json.Unmarshal(raw, &grant); err != nil || grant.AccessToken == "" {
		return nil, &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw), Kind: domain.ErrTokenExchangeFailed}
	}

	return &grant, nil
}

// Webhook API

func (c *client) RegisterWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	if _, err := client.Webhook.Create(ctx, webhook); err != nil {
		// Shopify answers 422 when the same topic/address pair is already registered.
		if strings.Contains(err.Error(), "already been taken") {
			c.logger.Debug().Str("shop", shopDomain).Str("topic", topic).Msg("Webhook already registered")
			return nil
		}
		return upstreamError(err)
	}
	return nil
}

// Product API

func (c *client) ListProducts(ctx context.Context, shopDomain string, accessToken string) ([]goshopify.Product, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	products, err := client.Product.List(ctx, nil)
	if err != nil {
		return nil, upstreamError(err)
	}
	return products, nil
}

// upstreamError converts go-shopify response errors into domain errors that
// keep the upstream status for the API layer.
func upstreamError(err error) error {
	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.UpstreamError{Service: serviceName, StatusCode: rateErr.Status, Body: rateErr.Error(), Kind: domain.ErrUpstreamUnavailable}
	}
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return &domain.UpstreamError{Service: serviceName, StatusCode: respErr.Status, Body: respErr.Error(), Kind: domain.ErrUpstreamUnavailable}
	}
	return &domain.UpstreamError{Service: serviceName, Body: err.Error(), Kind: domain.ErrUpstreamUnavailable}
}
