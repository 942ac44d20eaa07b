package shopify

import (
	"context"
	"fmt"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/rs/zerolog"
)

// TokenManager encrypts Shopify access tokens before storage
type TokenManager struct {
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(encryptionSvc ports.EncryptionService, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		encryptionSvc: encryptionSvc,
		logger:        logger,
	}
}

// EncryptToken encrypts an access token before storage
func (tm *TokenManager) EncryptToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return tm.encryptionSvc.Encrypt(token)
}

// DecryptToken decrypts an access token after retrieval
func (tm *TokenManager) DecryptToken(encryptedToken string) (string, error) {
	if encryptedToken == "" {
		return "", fmt.Errorf("encrypted token cannot be empty")
	}
	return tm.encryptionSvc.Decrypt(encryptedToken)
}

// SecureStore wraps store so access tokens are encrypted on Put and
// decrypted on Get. Callers keep working with plaintext connections.
func (tm *TokenManager) SecureStore(store ports.ShopStore) ports.ShopStore {
	return &secureShopStore{inner: store, tm: tm}
}

type secureShopStore struct {
	inner ports.ShopStore
	tm    *TokenManager
}

func (s *secureShopStore) Put(ctx context.Context, conn *domain.ShopConnection) error {
	sealed, err := s.tm.EncryptToken(conn.AccessToken)
	if err != nil {
		return fmt.Errorf("%w: failed to encrypt access token: %v", domain.ErrPersistenceFailure, err)
	}
	cp := *conn
	cp.AccessToken = sealed
	return s.inner.Put(ctx, &cp)
}

func (s *secureShopStore) Get(ctx context.Context, shop string) (*domain.ShopConnection, error) {
	conn, err := s.inner.Get(ctx, shop)
	if err != nil || conn == nil {
		return conn, err
	}
	token, err := s.tm.DecryptToken(conn.AccessToken)
	if err != nil {
		s.tm.logger.Error().Err(err).Str("shop", shop).Msg("Failed to decrypt stored access token")
		return nil, fmt.Errorf("%w: failed to decrypt access token: %v", domain.ErrPersistenceFailure, err)
	}
	conn.AccessToken = token
	return conn, nil
}

func (s *secureShopStore) Delete(ctx context.Context, shop string) error {
	return s.inner.Delete(ctx, shop)
}
