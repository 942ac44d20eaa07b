package api

import (
	"net/http"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// handleConnect starts the install by redirecting the merchant to Shopify's
// consent screen.
func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.services.Auth.BeginInstall(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleOAuthCallback finishes the install and sends the merchant to the
// dashboard.
func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	res, err := h.services.Auth.CompleteInstall(r.Context(), r.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if len(res.FailedTopics) > 0 {
		zerolog.Ctx(r.Context()).Warn().
			Str("shop", res.Shop).
			Strs("failed_topics", res.FailedTopics).
			Msg("Install finished with missing webhook subscriptions")
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.services.Products.ListProducts(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []goshopify.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}
