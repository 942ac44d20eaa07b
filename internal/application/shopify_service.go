package application

import (
	"context"
	"fmt"
	"strings"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// ProductService proxies Admin API product reads for connected shops.
type ProductService struct {
	client  ports.ShopifyClient
	shops   ports.ShopStore
	metrics ports.MetricsRecorder
	logger  zerolog.Logger
}

// NewProductService creates a new product service
func NewProductService(client ports.ShopifyClient, shops ports.ShopStore, metrics ports.MetricsRecorder, logger zerolog.Logger) *ProductService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ProductService{client: client, shops: shops, metrics: metrics, logger: logger}
}

// getAccessToken retrieves the stored access token for a shop
func (s *ProductService) getAccessToken(ctx context.Context, shop string) (string, error) {
	conn, err := s.shops.Get(ctx, shop)
	if err != nil {
		return "", fmt.Errorf("failed to get shop: %w", err)
	}
	if conn == nil || conn.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrShopNotConnected, shop)
	}
	return conn.AccessToken, nil
}

// ListProducts retrieves products for a shop
func (s *ProductService) ListProducts(ctx context.Context, rawShop string) ([]goshopify.Product, error) {
	if strings.TrimSpace(rawShop) == "" {
		return nil, domain.MissingParameterError("shop")
	}
	shop, err := domain.NormalizeShop(rawShop)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.getAccessToken(ctx, shop)
	if err != nil {
		return nil, err
	}

	products, err := s.client.ListProducts(ctx, shop, accessToken)
	s.metrics.UpstreamCall("shopify", "list_products", err)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to list products")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}
