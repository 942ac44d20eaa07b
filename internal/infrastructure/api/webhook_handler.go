package api

import (
	"fmt"
	"io"
	"net/http"

	"shopify-video-layer/internal/domain"
	shopifyinfra "shopify-video-layer/internal/infrastructure/shopify"

	"github.com/go-chi/chi/v5"
)

const (
	// MaxWebhookBodyBytes caps a webhook delivery.
	MaxWebhookBodyBytes = 10 << 20

	shopDomainHeader = "X-Shopify-Shop-Domain"
)

// handleWebhook receives a compliance webhook. Signature failures are
// acknowledged with 200 so Shopify does not retry them; handler failures
// answer 500 so it does.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	topic, ok := domain.TopicFromPath(chi.URLParam(r, "topic"))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %s", domain.ErrUnknownWebhookTopic, chi.URLParam(r, "topic")))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "unreadable_body",
			Message: "failed to read webhook body",
			Details: err.Error(),
		})
		return
	}

	_, err = h.services.Webhooks.Receive(
		r.Context(),
		topic,
		r.Header.Get(shopDomainHeader),
		body,
		r.Header.Get(shopifyinfra.HmacHeader),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
