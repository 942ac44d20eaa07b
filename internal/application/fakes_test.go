package application

import (
	"context"
	"net/url"
	"sync"

	"shopify-video-layer/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

type registration struct {
	shop, token, topic, address string
}

type fakeShopify struct {
	mu sync.Mutex

	callbackValid bool
	grant         *domain.AccessTokenGrant
	exchangeErr   error
	registerErr   map[string]error
	products      []goshopify.Product
	productsErr   error

	exchanged     []string
	registrations []registration
}

func (f *fakeShopify) AuthorizeURL(shop, state string) string {
	return "https://" + shop + "/admin/oauth/authorize?" + url.Values{"state": {state}}.Encode()
}

func (f *fakeShopify) VerifyCallback(*url.URL) bool {
	return f.callbackValid
}

func (f *fakeShopify) ExchangeToken(_ context.Context, shop, code string) (*domain.AccessTokenGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, shop+":"+code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.grant, nil
}

func (f *fakeShopify) RegisterWebhook(_ context.Context, shop, token, topic, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations = append(f.registrations, registration{shop, token, topic, address})
	return f.registerErr[topic]
}

func (f *fakeShopify) ListProducts(context.Context, string, string) ([]goshopify.Product, error) {
	return f.products, f.productsErr
}

type fakeVideo struct {
	mu        sync.Mutex
	taskID    string
	createErr error
	statuses  []*domain.TaskStatus
	errs      []error
	calls     int
	lastReq   *domain.VideoRequest
}

func (f *fakeVideo) CreateTask(_ context.Context, req *domain.VideoRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	return f.taskID, f.createErr
}

// GetTaskStatus returns the configured statuses in order, repeating the last.
func (f *fakeVideo) GetTaskStatus(_ context.Context, taskID string) (*domain.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.statuses) == 0 {
		return &domain.TaskStatus{TaskID: taskID, State: domain.TaskStateProcessing}, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	st := *f.statuses[i]
	st.TaskID = taskID
	return &st, nil
}

func (f *fakeVideo) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
