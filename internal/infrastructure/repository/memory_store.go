package repository

import (
	"context"
	"sync"
	"time"

	"shopify-video-layer/internal/domain"
)

// MemoryShopStore keeps connections in process memory. Data is lost on
// restart.
type MemoryShopStore struct {
	mu    sync.RWMutex
	shops map[string]domain.ShopConnection
}

// NewMemoryShopStore creates a new empty in-memory shop store.
func NewMemoryShopStore() *MemoryShopStore {
	return &MemoryShopStore{shops: make(map[string]domain.ShopConnection)}
}

func (s *MemoryShopStore) Put(_ context.Context, conn *domain.ShopConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[conn.Shop] = *conn
	return nil
}

func (s *MemoryShopStore) Get(_ context.Context, shop string) (*domain.ShopConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.shops[shop]
	if !ok {
		return nil, nil
	}
	return &conn, nil
}

func (s *MemoryShopStore) Delete(_ context.Context, shop string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shops, shop)
	return nil
}

// MemoryStateStore keeps OAuth state tokens in process memory.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]domain.OAuthState
	now    func() time.Time
}

// NewMemoryStateStore creates a new empty in-memory OAuth state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]domain.OAuthState),
		now:    time.Now,
	}
}

func (s *MemoryStateStore) Save(_ context.Context, state *domain.OAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, v := range s.states {
		if v.Expired(now) {
			delete(s.states, k)
		}
	}
	s.states[state.State] = *state
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (*domain.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[state]
	if !ok {
		return nil, nil
	}
	delete(s.states, state)
	if st.Expired(s.now()) {
		return nil, nil
	}
	return &st, nil
}
