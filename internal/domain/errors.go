package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. The API layer maps these to HTTP
// statuses with errors.Is / errors.As.
var (
	ErrInvalidShopIdentifier    = errors.New("invalid shop identifier")
	ErrMissingParameter         = errors.New("missing parameter")
	ErrTokenExchangeFailed      = errors.New("token exchange failed")
	ErrWebhookSignatureInvalid  = errors.New("webhook signature invalid")
	ErrUpstreamUnavailable      = errors.New("upstream unavailable")
	ErrPersistenceFailure       = errors.New("persistence failure")
	ErrInvalidState             = errors.New("invalid oauth state")
	ErrCallbackSignatureInvalid = errors.New("oauth callback signature invalid")
	ErrShopNotConnected         = errors.New("shop not connected")
	ErrInvalidVideoRequest      = errors.New("invalid video request")
	ErrUnknownWebhookTopic      = errors.New("unknown webhook topic")
)

// MissingParameterError names the absent parameter.
func MissingParameterError(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}

// UpstreamError carries the status and body of a failed call to Shopify or
// the video API so they can be echoed back for diagnosis.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
	Kind       error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %s", e.Unwrap(), e.Service, e.Body)
	}
	return fmt.Sprintf("%s: %s returned status %d: %s", e.Unwrap(), e.Service, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	if e.Kind == nil {
		return ErrUpstreamUnavailable
	}
	return e.Kind
}
