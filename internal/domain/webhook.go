package domain

import (
	"encoding/json"
	"strings"
)

// Compliance webhook topics registered for every installed shop.
const (
	TopicAppUninstalled       = "app/uninstalled"
	TopicCustomersDataRequest = "customers/data_request"
	TopicCustomersRedact      = "customers/redact"
	TopicShopRedact           = "shop/redact"
)

// ComplianceTopics lists the topics registered during the OAuth callback.
var ComplianceTopics = []string{
	TopicAppUninstalled,
	TopicCustomersDataRequest,
	TopicCustomersRedact,
	TopicShopRedact,
}

// WebhookEvent represents a received webhook delivery.
type WebhookEvent struct {
	Topic    string `json:"topic"`
	Shop     string `json:"shop"`
	Payload  []byte `json:"payload"`
	Verified bool   `json:"verified"`
}

// WebhookPayload holds the shop identifying fields Shopify puts in the
// compliance and app/uninstalled payloads.
type WebhookPayload struct {
	ShopID          int64  `json:"shop_id"`
	ShopDomain      string `json:"shop_domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
	Domain          string `json:"domain"`
}

// ParseWebhookPayload decodes the identifying fields of a webhook body.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// TopicPath converts "customers/data_request" into the path segment
// "customers_data_request" used by the receiver routes.
func TopicPath(topic string) string {
	return strings.Replace(topic, "/", "_", 1)
}

// TopicFromPath is the inverse of TopicPath restricted to known topics.
func TopicFromPath(segment string) (string, bool) {
	for _, topic := range ComplianceTopics {
		if TopicPath(topic) == segment {
			return topic, true
		}
	}
	return "", false
}
