package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shopify-video-layer/internal/application"
	"shopify-video-layer/internal/application/webhook_handlers"
	"shopify-video-layer/internal/config"
	"shopify-video-layer/internal/infrastructure/api"
	"shopify-video-layer/internal/infrastructure/metrics"
	shopifyinfra "shopify-video-layer/internal/infrastructure/shopify"
	"shopify-video-layer/internal/infrastructure/videoapi"
	"shopify-video-layer/internal/ports"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

const serviceName = "shopify-video-layer"

var cfg config.Config

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found")
	}

	app := &cli.App{
		Name:    serviceName,
		Usage:   "Shopify OAuth, compliance webhooks and product video generation",
		Version: commitHash(),
		Flags:   config.Flags(&cfg),
		Before: func(*cli.Context) error {
			return cfg.Validate()
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:  "watch-video",
				Usage: "poll a video task until it finishes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "task-id", Usage: "task returned by /video/generate", Required: true},
				},
				Action: watchVideo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("Exited with error")
	}
}

func newLogger() zerolog.Logger {
	var logger zerolog.Logger
	if strings.EqualFold(cfg.LogFormat, "console") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return logger.Level(level).With().
		Timestamp().
		Str("service", serviceName).
		Str("version", commitHash()).
		Logger()
}

func commitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
		return info.Main.Version
	}
	return "unknown"
}

func newShopifyClient(httpClient *http.Client, logger zerolog.Logger) ports.ShopifyClient {
	return shopifyinfra.NewClient(shopifyinfra.Config{
		APIKey:      cfg.ShopifyClientID,
		APISecret:   cfg.ShopifyClientSecret,
		RedirectURI: cfg.ShopifyRedirectURI,
		Scopes:      cfg.Scopes(),
		APIVersion:  cfg.ShopifyAPIVersion,
	}, httpClient, logger)
}

func newVideoClient(httpClient *http.Client, logger zerolog.Logger) *videoapi.Client {
	return videoapi.NewClient(videoapi.Config{
		BaseURL:     cfg.VideoAPIBaseURL,
		APIKey:      cfg.VideoAPIKey,
		Model:       cfg.VideoModel,
		CallbackURL: cfg.VideoCallbackURL,
	}, httpClient, logger)
}

func serve(c *cli.Context) error {
	logger := newLogger()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	m := metrics.New()

	// Initialize repositories
	shops, closeShops, err := newShopStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeShops()

	states, closeStates, err := newStateStore(ctx)
	if err != nil {
		return err
	}
	defer closeStates()

	shopify := newShopifyClient(httpClient, logger)
	videos := newVideoClient(httpClient, logger)

	// Initialize webhook dispatcher and register handlers
	dispatcher := application.NewWebhookDispatcher(logger)
	dispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, shops))
	dispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(logger, shops))
	dispatcher.RegisterHandler(webhook_handlers.NewShopRedactHandler(logger, shops))

	router := api.NewRouter(api.RouterConfig{
		Services: api.Services{
			Auth: application.NewAuthService(shopify, shops, states, m, logger, application.AuthServiceConfig{
				AppURL:   cfg.AppBaseURL(),
				StateTTL: cfg.OAuthStateTTL,
			}),
			Products: application.NewProductService(shopify, shops, m, logger),
			Videos:   application.NewVideoService(videos, m, logger),
			Webhooks: application.NewWebhookService(
				shopifyinfra.NewWebhookVerifier(cfg.WebhookSecret),
				dispatcher,
				m,
				logger,
				cfg.WebhookTimeout,
			),
		},
		Metrics: m,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msgf("Swagger documentation available at http://localhost:%d/swagger/index.html", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
