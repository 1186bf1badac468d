package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	// RotatedRefreshPrefix is the prefix for rotated refresh-token marks
	RotatedRefreshPrefix = "rotated:refresh:"
)

// RotationLedger remembers hashes of refresh tokens that were already
// rotated, so presenting one again can be recognized as replay instead of a
// plain lookup miss. Best-effort: without Redis a replayed token still fails,
// it just cannot be attributed to a session family.
type RotationLedger struct{}

// NewRotationLedger returns a RotationLedger backed by the global Redis client.
func NewRotationLedger() *RotationLedger {
	return &RotationLedger{}
}

type rotatedTokenInfo struct {
	UserID  string `json:"user_id"`
	Cluster string `json:"cluster"`
}

// Record marks a refresh-token hash as rotated for the given TTL
func (l *RotationLedger) Record(ctx context.Context, refreshHash, userID, cluster string, ttl time.Duration) {
	if RedisClient == nil {
		return
	}
	data, err := json.Marshal(rotatedTokenInfo{UserID: userID, Cluster: cluster})
	if err != nil {
		return
	}
	if err := RedisClient.Set(ctx, RotatedRefreshPrefix+refreshHash, data, ttl).Err(); err != nil {
		slog.Warn("Failed to record rotated refresh token", "error", err)
	}
}

// Lookup reports whether a refresh-token hash was rotated and, if so, the
// user and cluster it belonged to.
func (l *RotationLedger) Lookup(ctx context.Context, refreshHash string) (userID, cluster string, found bool) {
	if RedisClient == nil {
		return "", "", false
	}
	raw, err := RedisClient.Get(ctx, RotatedRefreshPrefix+refreshHash).Result()
	if err != nil {
		return "", "", false
	}
	var info rotatedTokenInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return "", "", false
	}
	return info.UserID, info.Cluster, true
}
