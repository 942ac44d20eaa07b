package application

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStateTTL = 10 * time.Minute

	installOK     = "ok"
	installFailed = "failed"
)

// AuthService drives the OAuth install: it builds the authorize redirect,
// then on callback exchanges the code, stores the connection and subscribes
// the shop to the compliance webhooks.
type AuthService struct {
	client   ports.ShopifyClient
	shops    ports.ShopStore
	states   ports.OAuthStateStore
	metrics  ports.MetricsRecorder
	logger   zerolog.Logger
	appURL   string
	stateTTL time.Duration

	now      func() time.Time
	newState func() string
}

// AuthServiceConfig holds the settings AuthService needs besides its ports.
type AuthServiceConfig struct {
	AppURL   string
	StateTTL time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	client ports.ShopifyClient,
	shops ports.ShopStore,
	states ports.OAuthStateStore,
	metrics ports.MetricsRecorder,
	logger zerolog.Logger,
	cfg AuthServiceConfig,
) *AuthService {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &AuthService{
		client:   client,
		shops:    shops,
		states:   states,
		metrics:  metrics,
		logger:   logger,
		appURL:   strings.TrimRight(cfg.AppURL, "/"),
		stateTTL: cfg.StateTTL,
		now:      time.Now,
		newState: uuid.NewString,
	}
}

// BeginInstall normalizes the shop, records a fresh state token and returns
// the Shopify authorize URL to redirect the merchant to.
func (s *AuthService) BeginInstall(ctx context.Context, rawShop string) (string, error) {
	if strings.TrimSpace(rawShop) == "" {
		return "", domain.MissingParameterError("shop")
	}

	shop, err := domain.NormalizeShop(rawShop)
	if err != nil {
		s.logger.Warn().Str("input", rawShop).Msg("Rejected shop identifier")
		return "", err
	}

	now := s.now().UTC()
	state := &domain.OAuthState{
		State:     s.newState(),
		Shop:      shop,
		CreatedAt: now,
		ExpiresAt: now.Add(s.stateTTL),
	}
	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save OAuth state")
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}

	s.logger.Info().Str("shop", shop).Msg("Starting OAuth install")
	return s.client.AuthorizeURL(shop, state.State), nil
}

// InstallResult describes a completed callback.
type InstallResult struct {
	Shop         string
	RedirectURL  string
	FailedTopics []string
}

// CompleteInstall handles the OAuth redirect. callbackURL must carry the
// query string exactly as Shopify sent it so the hmac can be checked.
func (s *AuthService) CompleteInstall(ctx context.Context, callbackURL *url.URL) (*InstallResult, error) {
	q := callbackURL.Query()
	shop, code, state := q.Get("shop"), q.Get("code"), q.Get("state")

	for _, p := range []struct{ name, value string }{{"shop", shop}, {"code", code}, {"state", state}} {
		if p.value == "" {
			s.metrics.Install(installFailed)
			return nil, domain.MissingParameterError(p.name)
		}
	}

	if !domain.IsShopDomain(shop) {
		s.metrics.Install(installFailed)
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidShopIdentifier, shop)
	}

	if !s.client.VerifyCallback(callbackURL) {
		s.logger.Warn().Str("shop", shop).Msg("OAuth callback hmac mismatch")
		s.metrics.Install(installFailed)
		return nil, domain.ErrCallbackSignatureInvalid
	}

	saved, err := s.states.Consume(ctx, state)
	if err != nil {
		s.metrics.Install(installFailed)
		return nil, fmt.Errorf("failed to load oauth state: %w", err)
	}
	if saved == nil || saved.Shop != shop {
		s.logger.Warn().Str("shop", shop).Msg("OAuth state unknown, expired or issued for another shop")
		s.metrics.Install(installFailed)
		return nil, domain.ErrInvalidState
	}

	grant, err := s.client.ExchangeToken(ctx, shop, code)
	s.metrics.UpstreamCall("shopify", "token_exchange", err)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		s.metrics.Install(installFailed)
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	conn := &domain.ShopConnection{
		Shop:        shop,
		AccessToken: grant.AccessToken,
		ConnectedAt: s.now().UTC(),
	}
	if err := s.shops.Put(ctx, conn); err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save shop")
		s.metrics.Install(installFailed)
		return nil, fmt.Errorf("failed to save shop: %w", err)
	}

	failed := s.registerWebhooks(ctx, shop, grant.AccessToken)

	redirect := url.Values{"shop": {shop}}
	if len(failed) > 0 {
		redirect.Set("webhooks", "partial")
	}

	s.metrics.Install(installOK)
	s.logger.Info().
		Str("shop", shop).
		Strs("failed_webhooks", failed).
		Msg("Shop connected")

	return &InstallResult{
		Shop:         shop,
		RedirectURL:  s.appURL + "/dashboard?" + redirect.Encode(),
		FailedTopics: failed,
	}, nil
}

// registerWebhooks subscribes the shop to every compliance topic at once and
// waits for all calls to settle. Failures are reported, not returned.
func (s *AuthService) registerWebhooks(ctx context.Context, shop, accessToken string) []string {
	var (
		mu     sync.Mutex
		failed []string
		g      errgroup.Group
	)

	for _, topic := range domain.ComplianceTopics {
		g.Go(func() error {
			address := s.appURL + "/webhooks/" + domain.TopicPath(topic)
			err := s.client.RegisterWebhook(ctx, shop, accessToken, topic, address)
			s.metrics.WebhookRegistration(topic, err)
			if err != nil {
				s.logger.Warn().Err(err).Str("shop", shop).Str("topic", topic).Msg("Failed to register webhook")
				mu.Lock()
				failed = append(failed, topic)
				mu.Unlock()
				return nil
			}
			s.logger.Debug().Str("shop", shop).Str("topic", topic).Str("address", address).Msg("Registered webhook")
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(failed)
	return failed
}
