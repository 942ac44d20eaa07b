package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopify-video-layer/internal/domain"

	"github.com/rs/zerolog"
)

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

var errorReasons = []struct {
	err    error
	status int
	reason string
}{
	{domain.ErrMissingParameter, http.StatusBadRequest, "missing_parameter"},
	{domain.ErrInvalidShopIdentifier, http.StatusBadRequest, "invalid_shop_identifier"},
	{domain.ErrInvalidVideoRequest, http.StatusBadRequest, "invalid_video_request"},
	{domain.ErrShopNotConnected, http.StatusUnauthorized, "shop_not_connected"},
	{domain.ErrCallbackSignatureInvalid, http.StatusUnauthorized, "callback_signature_invalid"},
	{domain.ErrInvalidState, http.StatusForbidden, "invalid_state"},
	{domain.ErrUnknownWebhookTopic, http.StatusNotFound, "unknown_webhook_topic"},
	{domain.ErrPersistenceFailure, http.StatusInternalServerError, "persistence_failure"},
}

// errorStatus maps err onto an HTTP status, a machine readable reason and
// optional details.
func errorStatus(err error) (int, string, string) {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		status := http.StatusBadGateway
		if upstream.StatusCode >= 400 && upstream.StatusCode <= 599 {
			status = upstream.StatusCode
		}
		reason := "upstream_unavailable"
		if errors.Is(err, domain.ErrTokenExchangeFailed) {
			reason = "token_exchange_failed"
		}
		return status, reason, upstream.Body
	}

	for _, e := range errorReasons {
		if errors.Is(err, e.err) {
			return e.status, e.reason, ""
		}
	}
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return http.StatusBadGateway, "upstream_unavailable", ""
	}
	return http.StatusInternalServerError, "internal_error", ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, reason, details := errorStatus(err)

	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Int("status", status).Str("reason", reason).Msg("Request failed")

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: reason, Message: message, Details: details})
}
