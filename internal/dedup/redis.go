package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces fingerprint keys.
const DefaultKeyPrefix = "tonbuy:dedup:"

// Redis is a Gate shared between processes. Expiry is delegated to key TTLs.
type Redis struct {
	client *redis.Client
	window time.Duration
	prefix string
}

// NewRedis creates a gate on an existing client; zero window selects DefaultWindow.
func NewRedis(client *redis.Client, window time.Duration) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Redis{client: client, window: window, prefix: DefaultKeyPrefix}
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Compile-time interface check.
var _ Gate = (*Redis)(nil)

// SeenOrMark implements Gate with SET NX EX. now is unused; the server clock decides expiry.
func (r *Redis) SeenOrMark(ctx context.Context, fingerprint string, _ time.Time) (bool, error) {
	set, err := r.client.SetNX(ctx, r.Key(fingerprint), 1, r.window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !set, nil
}

// Key returns the Redis key for a fingerprint: prefix + SHA256(fingerprint) hex,
// so composite fingerprints get a fixed length.
func (r *Redis) Key(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return r.prefix + hex.EncodeToString(sum[:])
}
