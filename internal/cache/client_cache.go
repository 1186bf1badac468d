package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nexauth/nexauth/internal/domain/client"
)

const (
	// ClientCachePrefix is the prefix for relying-party cache keys
	ClientCachePrefix = "client:id:"
	// ClientCacheTTL is the time-to-live for cached registrations
	ClientCacheTTL = 15 * time.Minute
)

// ClientCache provides a Redis read-through cache for relying-party
// registrations. The authorize and token paths hit this on every request,
// so registrations are cached briefly; secret hashes are never cached.
type ClientCache struct {
	repo client.Repository
}

// NewClientCache creates a ClientCache over the provided repository.
func NewClientCache(repo client.Repository) *ClientCache {
	return &ClientCache{repo: repo}
}

type cachedClientInfo struct {
	ClientID     string   `json:"client_id"`
	Cluster      string   `json:"cluster"`
	RedirectURIs []string `json:"redirect_uris"`
	Scopes       []string `json:"scopes"`
	GrantTypes   []string `json:"grant_types"`
	Public       bool     `json:"public"`
	Active       bool     `json:"active"`
}

// GetByClientID retrieves a registration, using the cache if available.
// Cached entries carry no secret hash, so callers needing client
// authentication must go through the repository.
func (c *ClientCache) GetByClientID(ctx context.Context, clientID string) (*client.Client, error) {
	cacheKey := ClientCachePrefix + clientID

	if RedisClient != nil {
		cached, err := RedisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var info cachedClientInfo
			if err := json.Unmarshal([]byte(cached), &info); err == nil {
				slog.Debug("Client cache hit", "client_id", clientID)
				return &client.Client{
					ClientID:     info.ClientID,
					Cluster:      info.Cluster,
					RedirectURIs: info.RedirectURIs,
					Scopes:       info.Scopes,
					GrantTypes:   info.GrantTypes,
					Public:       info.Public,
					Active:       info.Active,
				}, nil
			}
		}
	}

	cl, err := c.repo.FindByClientID(clientID)
	if err != nil {
		return nil, err
	}

	if RedisClient != nil {
		info := cachedClientInfo{
			ClientID:     cl.ClientID,
			Cluster:      cl.Cluster,
			RedirectURIs: cl.RedirectURIs,
			Scopes:       cl.Scopes,
			GrantTypes:   cl.GrantTypes,
			Public:       cl.Public,
			Active:       cl.Active,
		}
		if data, err := json.Marshal(info); err == nil {
			if err := RedisClient.Set(ctx, cacheKey, data, ClientCacheTTL).Err(); err != nil {
				slog.Warn("Failed to cache client registration", "client_id", clientID, "error", err)
			}
		}
	}

	return cl, nil
}

// Invalidate removes a registration from the cache
func (c *ClientCache) Invalidate(ctx context.Context, clientID string) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Del(ctx, ClientCachePrefix+clientID).Err()
}
