// Package config declares the command line flags of the service, each bound
// to an environment variable, and validates the combinations between them.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// tokenKeySize is the AES-256 key length the token cipher expects.
const tokenKeySize = 32

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config is filled in by the flags returned from Flags.
type Config struct {
	Port int

	ShopifyClientID     string
	ShopifyClientSecret string
	ShopifyRedirectURI  string
	ShopifyScopes       cli.StringSlice
	ShopifyAPIVersion   string
	WebhookSecret       string
	AppURL              string

	StoreBackend    string
	MongoURI        string
	MongoDatabase   string
	DynamoDBTable   string
	StateBackend    string
	RedisURL        string
	OAuthStateTTL   time.Duration
	TokenEncryption string

	VideoAPIKey       string
	VideoAPIBaseURL   string
	VideoModel        string
	VideoCallbackURL  string
	VideoPollInterval time.Duration

	WebhookTimeout    time.Duration
	HTTPClientTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Flags returns the flags that populate cfg.
func Flags(cfg *Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Usage: "HTTP listen port", Value: 8080, EnvVars: []string{"PORT"}, Destination: &cfg.Port},

		&cli.StringFlag{Name: "shopify-client-id", Usage: "Shopify app API key", Required: true, EnvVars: []string{"SHOPIFY_CLIENT_ID"}, Destination: &cfg.ShopifyClientID},
		&cli.StringFlag{Name: "shopify-client-secret", Usage: "Shopify app API secret", Required: true, EnvVars: []string{"SHOPIFY_CLIENT_SECRET"}, Destination: &cfg.ShopifyClientSecret},
		&cli.StringFlag{Name: "shopify-redirect-uri", Usage: "OAuth redirect URI registered for the app", Required: true, EnvVars: []string{"SHOPIFY_REDIRECT_URI"}, Destination: &cfg.ShopifyRedirectURI},
		&cli.StringSliceFlag{Name: "shopify-scopes", Usage: "comma separated access scopes", Required: true, EnvVars: []string{"SHOPIFY_SCOPES"}, Destination: &cfg.ShopifyScopes},
		&cli.StringFlag{Name: "shopify-api-version", Usage: "Admin API version", Value: "2024-10", EnvVars: []string{"SHOPIFY_API_VERSION"}, Destination: &cfg.ShopifyAPIVersion},
		&cli.StringFlag{Name: "shopify-webhook-secret", Usage: "secret used to sign webhook deliveries", Required: true, EnvVars: []string{"SHOPIFY_WEBHOOK_SECRET"}, Destination: &cfg.WebhookSecret},
		&cli.StringFlag{Name: "app-url", Usage: "public base URL of this service", Required: true, EnvVars: []string{"APP_URL"}, Destination: &cfg.AppURL},

		&cli.StringFlag{Name: "store-backend", Usage: "memory, mongo or dynamodb", Value: BackendMemory, EnvVars: []string{"STORE_BACKEND"}, Destination: &cfg.StoreBackend},
		&cli.StringFlag{Name: "mongodb-uri", EnvVars: []string{"MONGODB_URI"}, Destination: &cfg.MongoURI},
		&cli.StringFlag{Name: "mongodb-database", EnvVars: []string{"MONGODB_DATABASE"}, Destination: &cfg.MongoDatabase},
		&cli.StringFlag{Name: "dynamodb-table", EnvVars: []string{"DYNAMODB_TABLE"}, Destination: &cfg.DynamoDBTable},
		&cli.StringFlag{Name: "state-backend", Usage: "memory or redis", Value: BackendMemory, EnvVars: []string{"STATE_BACKEND"}, Destination: &cfg.StateBackend},
		&cli.StringFlag{Name: "redis-url", EnvVars: []string{"REDIS_URL"}, Destination: &cfg.RedisURL},
		&cli.DurationFlag{Name: "oauth-state-ttl", Value: 10 * time.Minute, EnvVars: []string{"OAUTH_STATE_TTL"}, Destination: &cfg.OAuthStateTTL},
		&cli.StringFlag{Name: "token-encryption-key", Usage: "base64 AES-256 key; tokens are stored in clear when empty", EnvVars: []string{"TOKEN_ENCRYPTION_KEY"}, Destination: &cfg.TokenEncryption},

		&cli.StringFlag{Name: "video-api-key", Usage: "bearer token for the video API", Required: true, EnvVars: []string{"VIDEO_API_KEY", "KIE_API_KEY"}, Destination: &cfg.VideoAPIKey},
		&cli.StringFlag{Name: "video-api-base-url", Value: "https://api.kie.ai", EnvVars: []string{"VIDEO_API_BASE_URL"}, Destination: &cfg.VideoAPIBaseURL},
		&cli.StringFlag{Name: "video-model", Value: "sora-2-image-to-video", EnvVars: []string{"VIDEO_MODEL"}, Destination: &cfg.VideoModel},
		&cli.StringFlag{Name: "video-callback-url", EnvVars: []string{"VIDEO_CALLBACK_URL"}, Destination: &cfg.VideoCallbackURL},
		&cli.DurationFlag{Name: "video-poll-interval", Value: 5 * time.Second, EnvVars: []string{"VIDEO_POLL_INTERVAL"}, Destination: &cfg.VideoPollInterval},

		&cli.DurationFlag{Name: "webhook-timeout", Value: 5 * time.Second, EnvVars: []string{"WEBHOOK_TIMEOUT"}, Destination: &cfg.WebhookTimeout},
		&cli.DurationFlag{Name: "http-client-timeout", Value: 30 * time.Second, EnvVars: []string{"HTTP_CLIENT_TIMEOUT"}, Destination: &cfg.HTTPClientTimeout},

		&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}, Destination: &cfg.LogLevel},
		&cli.StringFlag{Name: "log-format", Usage: "json or console", Value: "json", EnvVars: []string{"LOG_FORMAT"}, Destination: &cfg.LogFormat},
	}
}

// Scopes returns the configured scopes with blanks removed. A single
// comma separated value is split.
func (c *Config) Scopes() []string {
	var out []string
	for _, v := range c.ShopifyScopes.Value() {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// AppBaseURL is AppURL without a trailing slash.
func (c *Config) AppBaseURL() string {
	return strings.TrimRight(c.AppURL, "/")
}

// Validate checks the rules that span several flags.
func (c *Config) Validate() error {
	var errs []error

	for name, raw := range map[string]string{
		"app-url":              c.AppURL,
		"shopify-redirect-uri": c.ShopifyRedirectURI,
		"video-api-base-url":   c.VideoAPIBaseURL,
	} {
		if err := validateURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.VideoCallbackURL != "" {
		if err := validateURL(c.VideoCallbackURL); err != nil {
			errs = append(errs, fmt.Errorf("video-callback-url: %w", err))
		}
	}
	if len(c.Scopes()) == 0 {
		errs = append(errs, errors.New("shopify-scopes: at least one scope is required"))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			errs = append(errs, errors.New("store-backend mongo requires mongodb-uri and mongodb-database"))
		}
	case BackendDynamoDB:
		if c.DynamoDBTable == "" {
			errs = append(errs, errors.New("store-backend dynamodb requires dynamodb-table"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store-backend %q", c.StoreBackend))
	}

	switch c.StateBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("state-backend redis requires redis-url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state-backend %q", c.StateBackend))
	}

	if c.TokenEncryption != "" {
		if key, err := base64.StdEncoding.DecodeString(c.TokenEncryption); err != nil {
			errs = append(errs, fmt.Errorf("token-encryption-key: %w", err))
		} else if len(key) != tokenKeySize {
			errs = append(errs, fmt.Errorf("token-encryption-key must decode to %d bytes, got %d", tokenKeySize, len(key)))
		}
	}
	if c.OAuthStateTTL <= 0 || c.VideoPollInterval <= 0 || c.WebhookTimeout <= 0 || c.HTTPClientTimeout <= 0 {
		errs = append(errs, errors.New("durations must be positive"))
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}
