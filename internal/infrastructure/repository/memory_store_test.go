package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"shopify-video-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryShopStore_PutGetDelete(t *testing.T) {
	store := NewMemoryShopStore()
	ctx := t.Context()
	now := time.Now().UTC()

	got, err := store.Get(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Put(ctx, &domain.ShopConnection{Shop: "acme.myshopify.com", AccessToken: "t1", ConnectedAt: now}))
	require.NoError(t, store.Put(ctx, &domain.ShopConnection{Shop: "acme.myshopify.com", AccessToken: "t2", ConnectedAt: now}))

	got, err = store.Get(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t2", got.AccessToken)

	require.NoError(t, store.Delete(ctx, "acme.myshopify.com"))
	require.NoError(t, store.Delete(ctx, "acme.myshopify.com"))

	got, err = store.Get(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryShopStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryShopStore()
	ctx := t.Context()

	conn := &domain.ShopConnection{Shop: "acme.myshopify.com", AccessToken: "t1"}
	require.NoError(t, store.Put(ctx, conn))
	conn.AccessToken = "mutated"

	got, err := store.Get(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.AccessToken)
}

func TestMemoryShopStore_ConcurrentIndependentKeys(t *testing.T) {
	store := NewMemoryShopStore()
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shop := fmt.Sprintf("shop-%d.myshopify.com", i)
			assert.NoError(t, store.Put(ctx, &domain.ShopConnection{Shop: shop, AccessToken: "t"}))
			_, err := store.Get(ctx, shop)
			assert.NoError(t, err)
			if i%2 == 0 {
				assert.NoError(t, store.Delete(ctx, shop))
			}
		}(i)
	}
	wg.Wait()

	for i := range 50 {
		got, err := store.Get(ctx, fmt.Sprintf("shop-%d.myshopify.com", i))
		require.NoError(t, err)
		if i%2 == 0 {
			assert.Nil(t, got)
		} else {
			assert.NotNil(t, got)
		}
	}
}

func TestMemoryStateStore(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := t.Context()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, &domain.OAuthState{State: "s1", Shop: "acme.myshopify.com", ExpiresAt: now.Add(10 * time.Minute)}))
	require.NoError(t, store.Save(ctx, &domain.OAuthState{State: "s2", Shop: "acme.myshopify.com", ExpiresAt: now.Add(time.Minute)}))

	got, err := store.Consume(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acme.myshopify.com", got.Shop)

	got, err = store.Consume(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got, "state must be single use")

	now = now.Add(2 * time.Minute)
	got, err = store.Consume(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, got, "expired state must not be redeemable")

	got, err = store.Consume(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStateStore_SavePrunesExpired(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := t.Context()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, &domain.OAuthState{State: "old", ExpiresAt: now.Add(time.Second)}))
	now = now.Add(time.Minute)
	require.NoError(t, store.Save(ctx, &domain.OAuthState{State: "new", ExpiresAt: now.Add(time.Minute)}))

	assert.Len(t, store.states, 1)
}
