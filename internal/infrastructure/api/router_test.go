package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"shopify-video-layer/internal/application"
	"shopify-video-layer/internal/application/webhook_handlers"
	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/infrastructure/metrics"
	"shopify-video-layer/internal/infrastructure/repository"
	shopifyinfra "shopify-video-layer/internal/infrastructure/shopify"
	"shopify-video-layer/internal/infrastructure/videoapi"
	"shopify-video-layer/internal/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testShop      = "acme-co.myshopify.com"
	testSecret    = "client-secret"
	webhookSecret = "whsec"
)

// fakeShopify stands in for the shop's admin host.
type fakeShopify struct {
	mu            sync.Mutex
	registered    []string
	exchangeCode  int
	exchangeBody  string
	productsToken string
}

func (f *fakeShopify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/admin/oauth/access_token":
		if f.exchangeCode != 0 {
			w.WriteHeader(f.exchangeCode)
			_, _ = io.WriteString(w, f.exchangeBody)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"shpat_live","scope":"read_products"}`)
	case "/admin/api/2024-10/webhooks.json":
		var body struct {
			Webhook struct {
				Topic string `json:"topic"`
			} `json:"webhook"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.registered = append(f.registered, body.Webhook.Topic)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"webhook":{"id":1}}`)
	case "/admin/api/2024-10/products.json":
		f.mu.Lock()
		f.productsToken = r.Header.Get("X-Shopify-Access-Token")
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"products":[{"id":7,"title":"Tee"}]}`)
	default:
		http.NotFound(w, r)
	}
}

type testServer struct {
	handler  http.Handler
	shopify  *fakeShopify
	shops    *repository.MemoryShopStore
	verifier *shopifyinfra.WebhookVerifier
	metrics  *metrics.Metrics
}

func newTestServer(t *testing.T, videoHandler http.HandlerFunc) *testServer {
	t.Helper()
	log := zerolog.Nop()

	fs := &fakeShopify{}
	shopifySrv := httptest.NewServer(fs)
	t.Cleanup(shopifySrv.Close)

	if videoHandler == nil {
		videoHandler = http.NotFound
	}
	videoSrv := httptest.NewServer(videoHandler)
	t.Cleanup(videoSrv.Close)

	m := metrics.New()
	shops := repository.NewMemoryShopStore()
	states := repository.NewMemoryStateStore()

	shopifyClient := shopifyinfra.NewClient(shopifyinfra.Config{
		APIKey:      "client-id",
		APISecret:   testSecret,
		RedirectURI: "https://app.example.com/oauth/callback",
		Scopes:      []string{"read_products"},
		APIVersion:  "2024-10",
	}, testutil.RewriteClient(shopifySrv.URL), log)
	videoClient := videoapi.NewClient(videoapi.Config{BaseURL: videoSrv.URL, APIKey: "kie"}, videoSrv.Client(), log)

	verifier := shopifyinfra.NewWebhookVerifier(webhookSecret)
	dispatcher := application.NewWebhookDispatcher(log)
	dispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(log, shops))
	dispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(log, shops))
	dispatcher.RegisterHandler(webhook_handlers.NewShopRedactHandler(log, shops))

	handler := NewRouter(RouterConfig{
		Services: Services{
			Auth: application.NewAuthService(shopifyClient, shops, states, m, log, application.AuthServiceConfig{
				AppURL:   "https://app.example.com",
				StateTTL: time.Minute,
			}),
			Products: application.NewProductService(shopifyClient, shops, m, log),
			Videos:   application.NewVideoService(videoClient, m, log),
			Webhooks: application.NewWebhookService(verifier, dispatcher, m, log, time.Second),
		},
		Metrics: m,
		Logger:  log,
	})

	return &testServer{handler: handler, shopify: fs, shops: shops, verifier: verifier, metrics: m}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, s.shops.Put(t.Context(), &domain.ShopConnection{Shop: testShop, AccessToken: "shpat_1"}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func signedCallback(params url.Values) string {
	message, _ := url.QueryUnescape(params.Encode())
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(message))
	params.Set("hmac", hex.EncodeToString(mac.Sum(nil)))
	return "/oauth/callback?" + params.Encode()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestOAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/connect?shop=acme-co", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, testShop, authURL.Host)
	assert.Equal(t, "/admin/oauth/authorize", authURL.Path)
	assert.Equal(t, "client-id", authURL.Query().Get("client_id"))
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	callback := signedCallback(url.Values{
		"shop":      {testShop},
		"code":      {"auth-code"},
		"state":     {state},
		"timestamp": {"1700000000"},
	})
	rec = s.do(httptest.NewRequest(http.MethodGet, callback, nil))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "https://app.example.com/dashboard?shop="+testShop, rec.Header().Get("Location"))

	conn, err := s.shops.Get(t.Context(), testShop)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "shpat_live", conn.AccessToken)
	assert.ElementsMatch(t, domain.ComplianceTopics, s.shopify.registered)

	// The state was consumed by the first callback.
	rec = s.do(httptest.NewRequest(http.MethodGet, callback, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_state", decodeError(t, rec).Error)
}

func TestOAuthCallback_Rejections(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/connect", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_parameter", decodeError(t, rec).Error)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/connect?shop=not%20a%20shop", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_shop_identifier", decodeError(t, rec).Error)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/oauth/callback?shop="+testShop+"&code=x&state=y&hmac=00", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "callback_signature_invalid", decodeError(t, rec).Error)
}

func TestOAuthCallback_TokenExchangeFailureEchoesUpstream(t *testing.T) {
	s := newTestServer(t, nil)
	s.shopify.exchangeCode = http.StatusBadRequest
	s.shopify.exchangeBody = `{"error":"invalid_request"}`

	rec := s.do(httptest.NewRequest(http.MethodGet, "/connect?shop="+testShop, nil))
	require.Equal(t, http.StatusFound, rec.Code)
	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	rec = s.do(httptest.NewRequest(http.MethodGet, signedCallback(url.Values{
		"shop":  {testShop},
		"code":  {"used-code"},
		"state": {authURL.Query().Get("state")},
	}), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "token_exchange_failed", body.Error)
	assert.Equal(t, `{"error":"invalid_request"}`, body.Details)

	conn, err := s.shops.Get(t.Context(), testShop)
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.Empty(t, s.shopify.registered)
}

func TestWebhook_ShopRedactWithValidSignature(t *testing.T) {
	s := newTestServer(t, nil)
	s.connect(t)

	body := `{"shop_id":1,"shop_domain":"` + testShop + `"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shop_redact", strings.NewReader(body))
	req.Header.Set(shopifyinfra.HmacHeader, s.verifier.Sign([]byte(body)))
	req.Header.Set("X-Shopify-Shop-Domain", testShop)

	rec := s.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	conn, err := s.shops.Get(t.Context(), testShop)
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestWebhook_BadSignatureIsAcknowledgedButIgnored(t *testing.T) {
	s := newTestServer(t, nil)
	s.connect(t)

	body := `{"shop_domain":"` + testShop + `"}`
	for _, digest := range []string{"", "bm90LWEtZGlnZXN0", s.verifier.Sign([]byte(body + " "))} {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/app_uninstalled", strings.NewReader(body))
		req.Header.Set(shopifyinfra.HmacHeader, digest)

		rec := s.do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	}

	conn, err := s.shops.Get(t.Context(), testShop)
	require.NoError(t, err)
	assert.NotNil(t, conn, "unverified deliveries must not touch the store")
}

func TestWebhook_UnknownTopic(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodPost, "/webhooks/orders_create", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_webhook_topic", decodeError(t, rec).Error)
}

func TestWebhook_OversizedBody(t *testing.T) {
	s := newTestServer(t, nil)
	body := strings.Repeat("a", MaxWebhookBodyBytes+1)
	rec := s.do(httptest.NewRequest(http.MethodPost, "/webhooks/shop_redact", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/products?shop="+testShop, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "shop_not_connected", decodeError(t, rec).Error)

	s.connect(t)
	rec = s.do(httptest.NewRequest(http.MethodGet, "/products?shop="+testShop, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var products []struct {
		ID    uint64 `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Tee", products[0].Title)
	assert.Equal(t, "shpat_1", s.shopify.productsToken)
}

func TestVideoGenerate(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/createTask", r.URL.Path)
		assert.Equal(t, "Bearer kie", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"code":200,"msg":"success","data":{"taskId":"task-42"}}`)
	})

	rec := s.do(httptest.NewRequest(http.MethodPost, "/video/generate",
		strings.NewReader(`{"prompt":"spin the mug","image_urls":["https://cdn.example.com/mug.png"],"aspect_ratio":"portrait"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"taskId":"task-42"}`, rec.Body.String())

	rec = s.do(httptest.NewRequest(http.MethodPost, "/video/generate", strings.NewReader(`{"prompt":"x","image_urls":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_video_request", decodeError(t, rec).Error)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/video/generate", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVideoGenerate_UpstreamStatusEchoed(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = io.WriteString(w, `insufficient credits`)
	})

	rec := s.do(httptest.NewRequest(http.MethodPost, "/video/generate",
		strings.NewReader(`{"prompt":"x","image_urls":["https://cdn.example.com/a.png"]}`)))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "upstream_unavailable", body.Error)
	assert.Equal(t, "insufficient credits", body.Details)
}

func TestVideoStatus(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/recordInfo", r.URL.Path)
		assert.Equal(t, "task-42", r.URL.Query().Get("taskId"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"code":200,"data":{"taskId":"task-42","state":"success","resultJson":"{\"resultUrls\":[\"https://cdn.example.com/v.mp4\"]}"}}`)
	})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/video/status", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/video/status?taskId=task-42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status domain.TaskStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, domain.TaskStateSuccess, status.State)
	assert.Equal(t, []string{"https://cdn.example.com/v.mp4"}, status.ResultURLs)
}

func TestVideoCallback(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodPost, "/video/callback",
		strings.NewReader(`{"code":200,"data":{"taskId":"task-42","state":"success"}}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/video/callback", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shopify_video_layer_http_request_duration_seconds")
}

func TestErrorStatus(t *testing.T) {
	status, reason, details := errorStatus(&domain.UpstreamError{Service: "video_api", Body: "bad envelope"})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "upstream_unavailable", reason)
	assert.Equal(t, "bad envelope", details)

	for _, code := range []int{http.StatusOK, http.StatusFound, 10001, -1} {
		status, reason, details = errorStatus(&domain.UpstreamError{Service: "video_api", StatusCode: code, Body: `{"code":10001}`})
		assert.Equal(t, http.StatusBadGateway, status, code)
		assert.Equal(t, "upstream_unavailable", reason)
		assert.Equal(t, `{"code":10001}`, details)
	}

	status, _, _ = errorStatus(&domain.UpstreamError{Service: "video_api", StatusCode: http.StatusTooManyRequests})
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, reason, _ = errorStatus(domain.ErrPersistenceFailure)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "persistence_failure", reason)

	status, reason, _ = errorStatus(io.EOF)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", reason)
}
