package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// CachedStore wraps a Store with a Redis cache of public profiles. The Store
// methods always reach the backing store, so credentials are read from and
// written to one place only; Profiles serves cached lookups. Entries live
// under "<prefix><id>" and are evicted on Save and Delete.
type CachedStore struct {
	Store
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedStore creates the cache decorator. Prefix and ttl may be zero.
func NewCachedStore(inner Store, client *redis.Client, prefix string, ttl time.Duration) *CachedStore {
	if prefix == "" {
		prefix = "user:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedStore{Store: inner, client: client, prefix: prefix, ttl: ttl}
}

// Profiles returns the read-through lookup used by the session guard.
func (c *CachedStore) Profiles() *ProfileCache {
	return &ProfileCache{c: c}
}

func (c *CachedStore) key(id string) string {
	return c.prefix + id
}

func (c *CachedStore) Save(ctx context.Context, u *models.User) (*models.User, error) {
	c.evict(ctx, u.ID)
	saved, err := c.Store.Save(ctx, u)
	if err != nil {
		return nil, err
	}
	// evict again so a concurrent read cannot re-populate the old record
	c.evict(ctx, u.ID)
	return saved, nil
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	c.evict(ctx, id)
	if err := c.Store.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *CachedStore) evict(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		logger.Warnf("user cache evict failed for %s: %v", id, err)
	}
}

// ProfileCache looks identities up by id through Redis. Records it returns
// never carry the password hash or the external id.
type ProfileCache struct {
	c *CachedStore
}

func (p *ProfileCache) FindByID(ctx context.Context, id string) (*models.User, error) {
	b, err := p.c.client.Get(ctx, p.c.key(id)).Bytes()
	if err == nil {
		var u models.User
		if err := json.Unmarshal(b, &u); err == nil {
			return &u, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warnf("user cache read failed for %s: %v", id, err)
	}

	u, err := p.c.Store.FindByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}
	pub := u.Public()
	pub.ExternalID = ""
	p.put(ctx, pub)
	return pub, nil
}

func (p *ProfileCache) put(ctx context.Context, u *models.User) {
	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := p.c.client.Set(ctx, p.c.key(u.ID), b, p.c.ttl).Err(); err != nil {
		logger.Warnf("user cache write failed for %s: %v", u.ID, err)
	}
}
