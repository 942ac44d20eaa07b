package domain

import "time"

// OAuthState binds an anti-forgery state token to the shop that started the
// install. It is consumed exactly once by the callback.
type OAuthState struct {
	State     string    `json:"state"`
	Shop      string    `json:"shop"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the state can no longer be redeemed.
func (s *OAuthState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AccessTokenGrant is the result of exchanging an authorization code.
type AccessTokenGrant struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}
