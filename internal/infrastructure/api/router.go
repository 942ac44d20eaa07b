package api

import (
	"net/http"

	"shopify-video-layer/internal/application"
	"shopify-video-layer/internal/infrastructure/metrics"
	securitymiddleware "shopify-video-layer/internal/infrastructure/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

const DefaultSwaggerFile = "./docs/swagger.json"

// Services bundles the application services the HTTP layer fronts.
type Services struct {
	Auth     *application.AuthService
	Products *application.ProductService
	Videos   *application.VideoService
	Webhooks *application.WebhookService
}

// RouterConfig configures NewRouter. Metrics may be nil, in which case
// /metrics is not mounted.
type RouterConfig struct {
	Services    Services
	Metrics     *metrics.Metrics
	SwaggerFile string
	Logger      zerolog.Logger
}

// Handler serves every HTTP route of the layer.
type Handler struct {
	services Services
}

// NewRouter wires middleware and routes onto a chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	h := &Handler{services: cfg.Services}

	var observer securitymiddleware.RequestObserver
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(securitymiddleware.RequestLogger(cfg.Logger, observer))
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	swaggerFile := cfg.SwaggerFile
	if swaggerFile == "" {
		swaggerFile = DefaultSwaggerFile
	}
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, swaggerFile)
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Get("/connect", h.handleConnect)
	r.Get("/oauth/callback", h.handleOAuthCallback)
	r.Post("/webhooks/{topic}", h.handleWebhook)
	r.Get("/products", h.handleProducts)

	r.Route("/video", func(r chi.Router) {
		r.Post("/generate", h.handleGenerateVideo)
		r.Get("/status", h.handleVideoStatus)
		r.Post("/callback", h.handleVideoCallback)
		r.Get("/callback", h.handleVideoCallbackReady)
	})

	return r
}
