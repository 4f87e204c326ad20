package users

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// countingStore counts FindByID calls that reach the backing store.
type countingStore struct {
	Store
	finds int
}

func (c *countingStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	c.finds++
	return c.Store.FindByID(ctx, id)
}

func newCached(t *testing.T) (*CachedStore, *countingStore, *mr.Miniredis) {
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	inner := &countingStore{Store: NewMemoryStore()}
	return NewCachedStore(inner, client, "test:user:", 5*time.Second), inner, m
}

func TestProfileCache_ReadThrough(t *testing.T) {
	c, inner, m := newCached(t)
	ctx := context.Background()
	profiles := c.Profiles()

	u, err := c.Create(ctx, &models.User{Name: "Ann", Email: "ann@x.com", Provider: models.ProviderLocal, PasswordHash: "hash"})
	require.NoError(t, err)

	first, err := profiles.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ann", first.Name)
	require.Empty(t, first.PasswordHash)
	require.True(t, m.Exists("test:user:"+u.ID))

	second, err := profiles.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, inner.finds)
	require.Equal(t, u.ID, second.ID)
	require.Equal(t, "ann@x.com", second.Email)
	require.Empty(t, second.PasswordHash)
}

func TestProfileCache_NeverStoresCredentials(t *testing.T) {
	c, _, m := newCached(t)
	ctx := context.Background()

	u, err := c.Create(ctx, &models.User{Name: "Gina", Email: "g@x.com", Provider: models.ProviderGoogle, ExternalID: "google-sub-42", PasswordHash: "$2a$10$secret"})
	require.NoError(t, err)
	_, err = c.Profiles().FindByID(ctx, u.ID)
	require.NoError(t, err)

	raw, err := m.Get("test:user:" + u.ID)
	require.NoError(t, err)
	require.NotContains(t, raw, "$2a$10$secret")
	require.NotContains(t, raw, "google-sub-42")
	require.NotContains(t, raw, "passwordHash")
}

func TestCachedStore_FindByIDBypassesCache(t *testing.T) {
	c, inner, m := newCached(t)
	ctx := context.Background()

	u, err := c.Create(ctx, &models.User{Email: "ann@x.com", Provider: models.ProviderLocal, PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = c.Profiles().FindByID(ctx, u.ID)
	require.NoError(t, err)

	// the credential-bearing read path goes to the backing store every time
	full, err := c.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "hash", full.PasswordHash)
	require.Equal(t, 2, inner.finds)
	require.True(t, m.Exists("test:user:"+u.ID))
}

func TestProfileCache_MissIsNotCached(t *testing.T) {
	c, _, m := newCached(t)
	got, err := c.Profiles().FindByID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
	require.False(t, m.Exists("test:user:nope"))
}

func TestCachedStore_SaveAndDeleteEvict(t *testing.T) {
	c, _, m := newCached(t)
	ctx := context.Background()
	profiles := c.Profiles()

	u, err := c.Create(ctx, &models.User{Name: "Ann", Email: "ann@x.com", Provider: models.ProviderLocal})
	require.NoError(t, err)
	_, err = profiles.FindByID(ctx, u.ID)
	require.NoError(t, err)

	u.Name = "Annie"
	_, err = c.Save(ctx, u)
	require.NoError(t, err)
	require.False(t, m.Exists("test:user:"+u.ID))

	got, err := profiles.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Annie", got.Name)

	require.NoError(t, c.Delete(ctx, u.ID))
	require.False(t, m.Exists("test:user:"+u.ID))
	gone, err := profiles.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestProfileCache_TTLExpiry(t *testing.T) {
	c, inner, m := newCached(t)
	ctx := context.Background()

	u, err := c.Create(ctx, &models.User{Email: "ann@x.com", Provider: models.ProviderLocal})
	require.NoError(t, err)
	_, err = c.Profiles().FindByID(ctx, u.ID)
	require.NoError(t, err)

	m.FastForward(6 * time.Second)
	_, err = c.Profiles().FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, inner.finds)
}
