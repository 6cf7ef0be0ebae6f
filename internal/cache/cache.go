// Package cache is the ephemeral state store backing presence, typing
// and peer-diagnostics facts. It never holds RoomManager's own maps:
// those stay authoritative in process memory.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache is a TTL-keyed key/value store. Two backends implement it: a
// shared redis store for multi-instance deployments and an in-process
// map when none is configured. Callers never branch on which one is
// active.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Sweep purges lapsed entries on the local backend; the shared
	// backend expires natively and treats it as a no-op.
	Sweep(ctx context.Context) error
}

// New selects the backend from configuration: a redis address means
// shared state, otherwise local.
func New(redisAddr string) Cache {
	if redisAddr == "" {
		log.Info().Str("module", "cache").Msg("using local cache backend")
		return NewLocal()
	}
	log.Info().Str("module", "cache").Str("addr", redisAddr).Msg("using redis cache backend")
	return NewRedis(redisAddr)
}
