// Package cache provides an optional Redis read-through cache for the
// latest telemetry log per vehicle. Without a reachable Redis the cache is a
// no-op and every lookup hits the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and pings it with a short timeout.
// It returns nil when addr is empty or the server is unreachable; callers
// degrade gracefully.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// TelemetryCache caches the most recent log per vehicle, keyed by vehicle id
// and invalidated on every telemetry write. Nil receiver and nil client are
// both safe: every operation becomes a miss.
type TelemetryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTelemetryCache(rdb *redis.Client, ttl time.Duration) *TelemetryCache {
	return &TelemetryCache{rdb: rdb, ttl: ttl}
}

func key(vehicleID uint) string {
	return fmt.Sprintf("telemetry:latest:%d", vehicleID)
}

func (c *TelemetryCache) enabled() bool {
	return c != nil && c.rdb != nil
}

// opTimeout bounds each Redis round trip; failures fall back to the database.
const opTimeout = 200 * time.Millisecond

func (c *TelemetryCache) GetLatest(vehicleID uint) (*models.TelemetryLog, bool) {
	if !c.enabled() {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	raw, err := c.rdb.Get(ctx, key(vehicleID)).Bytes()
	if err != nil {
		return nil, false
	}
	var log models.TelemetryLog
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil, false
	}
	return &log, true
}

func (c *TelemetryCache) SetLatest(vehicleID uint, log *models.TelemetryLog) {
	if !c.enabled() || log == nil {
		return
	}
	raw, err := json.Marshal(log)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	c.rdb.Set(ctx, key(vehicleID), raw, c.ttl)
}

func (c *TelemetryCache) Invalidate(vehicleID uint) {
	if !c.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	c.rdb.Del(ctx, key(vehicleID))
}
