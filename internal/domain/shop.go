package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const shopDomainSuffix = ".myshopify.com"

var (
	shopDomainPattern = regexp.MustCompile(`^[a-z0-9-]+\.myshopify\.com$`)
	adminStorePattern = regexp.MustCompile(`store/([a-z0-9-]+)`)
	protocolPattern   = regexp.MustCompile(`^https?://`)
)

// ShopConnection is the only persisted entity: a connected merchant store and
// the offline access token granted for it.
type ShopConnection struct {
	Shop        string    `json:"shop"`
	AccessToken string    `json:"-"`
	ConnectedAt time.Time `json:"connected_at"`
}

// NormalizeShop turns user input such as "mystore",
// "https://mystore.myshopify.com/admin" or
// "https://admin.shopify.com/store/mystore/products" into "mystore.myshopify.com".
func NormalizeShop(raw string) (string, error) {
	shop := strings.ToLower(strings.TrimSpace(raw))
	if shop == "" {
		return "", fmt.Errorf("%w: empty shop", ErrInvalidShopIdentifier)
	}

	if m := adminStorePattern.FindStringSubmatch(shop); m != nil {
		shop = m[1]
	}

	shop = protocolPattern.ReplaceAllString(shop, "")
	if i := strings.Index(shop, "/"); i >= 0 {
		shop = shop[:i]
	}

	if !strings.HasSuffix(shop, shopDomainSuffix) {
		shop += shopDomainSuffix
	}

	if !shopDomainPattern.MatchString(shop) {
		return "", fmt.Errorf("%w: %q", ErrInvalidShopIdentifier, raw)
	}
	return shop, nil
}

// IsShopDomain reports whether shop is already a canonical shop domain.
func IsShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}
