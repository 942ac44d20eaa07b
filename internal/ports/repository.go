package ports

import (
	"context"

	"shopify-video-layer/internal/domain"
)

// ShopStore persists ShopConnection records keyed by shop domain.
// Writes are last-write-wins; implementations must tolerate concurrent access
// to independent keys.
type ShopStore interface {
	// Put creates or replaces the connection for conn.Shop.
	Put(ctx context.Context, conn *domain.ShopConnection) error

	// Get returns nil, nil when the shop has no connection.
	Get(ctx context.Context, shop string) (*domain.ShopConnection, error)

	// Delete removes the connection. Deleting an absent shop is not an error.
	Delete(ctx context.Context, shop string) error
}

// OAuthStateStore keeps install state tokens between /connect and the callback.
type OAuthStateStore interface {
	Save(ctx context.Context, state *domain.OAuthState) error

	// Consume returns and removes the state. It returns nil, nil when the
	// state is unknown or expired.
	Consume(ctx context.Context, state string) (*domain.OAuthState, error)
}

// EncryptionService encrypts secrets before they reach a ShopStore.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
