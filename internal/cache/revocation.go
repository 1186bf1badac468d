package cache

import (
	"context"
	"log/slog"
	"time"
)

const (
	// RevokedSessionPrefix is the prefix for revoked session marks
	RevokedSessionPrefix = "revoked:sid:"
)

// RevocationCache marks revoked session IDs so bearer checks can reject
// access tokens before their natural expiry. All operations are best-effort:
// without Redis the marks are skipped and tokens ride out their short TTL.
type RevocationCache struct{}

// NewRevocationCache returns a RevocationCache backed by the global Redis client.
func NewRevocationCache() *RevocationCache {
	return &RevocationCache{}
}

// MarkRevoked records a session ID as revoked for the given TTL
func (c *RevocationCache) MarkRevoked(ctx context.Context, sid string, ttl time.Duration) {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Set(ctx, RevokedSessionPrefix+sid, "1", ttl).Err(); err != nil {
		slog.Warn("Failed to mark session revoked in Redis", "sid", sid, "error", err)
		return
	}
	slog.Debug("Session marked revoked", "sid", sid, "ttl", ttl)
}

// IsRevoked reports whether a session ID has been marked revoked
func (c *RevocationCache) IsRevoked(ctx context.Context, sid string) bool {
	if RedisClient == nil {
		return false
	}
	n, err := RedisClient.Exists(ctx, RevokedSessionPrefix+sid).Result()
	if err != nil {
		slog.Warn("Failed to check revocation mark in Redis", "sid", sid, "error", err)
		return false
	}
	return n > 0
}
